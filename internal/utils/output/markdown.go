package output

import (
	"os"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/law-makers/tracktime/pkg/models"
)

// RenderMarkdown converts the HTML report to GitHub-flavored Markdown
func RenderMarkdown(summary models.BatchRunSummary) (string, error) {
	page, err := RenderHTML(summary)
	if err != nil {
		return "", err
	}

	cleaned, err := CleanHTML(page)
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return converter.ConvertString(cleaned)
}

// SaveMarkdown writes the Markdown report to filepath
func SaveMarkdown(summary models.BatchRunSummary, filepath string) error {
	mdStr, err := RenderMarkdown(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, []byte(mdStr), 0644)
}
