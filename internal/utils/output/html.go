package output

import (
	"bytes"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/tracktime/pkg/models"
	"golang.org/x/net/html"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="nl">
<head>
<meta charset="utf-8">
<title>Tracking report {{.RunID}}</title>
<style>
body { font-family: sans-serif; }
td, th { padding: 4px 8px; border-bottom: 1px solid #ddd; text-align: left; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>Tracking report</h1>
<p>Run {{.RunID}}: {{.Total}} codes, {{.Successful}} successful, {{.Failed}} failed, {{.TotalTimeMs}} ms total, {{.AverageTimeMs}} ms average.</p>
<table>
<thead><tr><th>Code</th><th>Status</th><th>Handoff</th><th>Delivered</th><th>Duration</th><th>Source</th><th>Message</th></tr></thead>
<tbody>
{{range .Rows}}<tr{{if .Failed}} class="error"{{end}}><td>{{.Code}}</td><td>{{.Status}}</td><td>{{.Handoff}}</td><td>{{.Delivered}}</td><td>{{.Duration}}</td><td>{{.Source}}</td><td>{{.Message}}</td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

type reportRow struct {
	Code, Status, Handoff, Delivered, Duration, Source, Message string
	Failed                                                      bool
}

// RenderHTML renders the batch summary as a standalone HTML page
func RenderHTML(summary models.BatchRunSummary) (string, error) {
	rows := make([]reportRow, 0, len(summary.Results))
	for _, r := range summary.Results {
		rows = append(rows, reportRow{
			Code:      r.TrackingCode,
			Status:    string(r.DeliveryStatus),
			Handoff:   displayTime(r.HandoffMoment),
			Delivered: displayTime(r.DeliveryMoment),
			Duration:  r.Duration,
			Source:    r.Source,
			Message:   r.Message,
			Failed:    r.Failed(),
		})
	}

	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, struct {
		models.BatchRunSummary
		Rows []reportRow
	}{summary, rows})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SaveHTML writes the HTML report to filepath
func SaveHTML(summary models.BatchRunSummary, filepath string) error {
	page, err := RenderHTML(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, []byte(page), 0644)
}

// CleanHTML drops non-content elements and every attribute except links,
// leaving markup a Markdown converter renders cleanly.
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("head, script, style, link, meta, noscript, iframe, svg, form").Remove()

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Nodes[0]
		var kept []html.Attribute
		for _, attr := range node.Attr {
			if node.Data == "a" && (attr.Key == "href" || attr.Key == "title") {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func displayTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02-01-2006 15:04")
}
