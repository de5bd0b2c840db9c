package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/law-makers/tracktime/pkg/models"
)

// Formats lists the report formats Save understands
var Formats = []string{"csv", "json", "html", "md"}

// FormatFromPath infers the report format from a file extension
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "markdown":
		return "md"
	case "htm":
		return "html"
	}
	return ext
}

// Save writes the summary in the given format. An empty format is
// inferred from the file extension.
func Save(summary models.BatchRunSummary, path, format string) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	switch strings.ToLower(format) {
	case "csv":
		return SaveCSV(summary.Results, path)
	case "json":
		return SaveJSON(summary, path)
	case "html":
		return SaveHTML(summary, path)
	case "md", "markdown":
		return SaveMarkdown(summary, path)
	default:
		return fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}
