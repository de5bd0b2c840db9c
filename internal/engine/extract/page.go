package extract

import (
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/tracktime/internal/utils/dates"
	"github.com/law-makers/tracktime/pkg/models"
)

// Labels of a timeline synthesized from bare page text
const (
	LabelReceived   = "received"
	LabelUpdate     = "update"
	LabelLastUpdate = "last update"
)

// ScanPageText collects every date-time substring in the page body and
// synthesizes a minimal timeline from them in chronological order: the first
// is the receipt, the last is the latest update.
func ScanPageText(doc *goquery.Document) []models.RawEvent {
	body := doc.Find("body")
	if body.Length() == 0 {
		return nil
	}
	text := strings.Join(textLines(body.Nodes...), "\n")

	type stamp struct {
		raw string
		at  time.Time
	}
	var found []stamp
	seen := make(map[int64]bool)
	for _, m := range dates.FindDateTimes(text) {
		at, ok := dates.Parse(m)
		if !ok || seen[at.Unix()] {
			continue
		}
		seen[at.Unix()] = true
		found = append(found, stamp{raw: m, at: at})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })

	events := make([]models.RawEvent, 0, len(found))
	for i, f := range found {
		label := LabelUpdate
		switch {
		case i == 0:
			label = LabelReceived
		case i == len(found)-1:
			label = LabelLastUpdate
		}
		events = append(events, models.RawEvent{When: f.raw, Description: label})
	}
	return events
}
