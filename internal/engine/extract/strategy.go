// Package extract reads delivery status and timeline events out of a
// rendered tracking page.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// Strategy is one way of locating status and timeline on a page
type Strategy interface {
	// Name identifies the strategy in logs
	Name() string

	// FindStatusLabel returns the status text, or "" when not found
	FindStatusLabel(doc *goquery.Document) string

	// FindTimelineEvents returns the timeline, or nil when not found
	FindTimelineEvents(doc *goquery.Document) []models.RawEvent
}

// Extractor runs strategies in order and keeps the first non-empty status
// and the first non-empty timeline.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an Extractor over strategies, in priority order
func NewExtractor(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Strategies returns the configured strategies
func (e *Extractor) Strategies() []Strategy {
	return e.strategies
}

// ExtractHTML parses rawHTML and extracts from it
func (e *Extractor) ExtractHTML(rawHTML string) (*models.RawExtraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return e.Extract(doc), nil
}

// Extract runs the strategies against doc. When no strategy finds a timeline
// section the whole page text is scanned for date-time substrings.
func (e *Extractor) Extract(doc *goquery.Document) *models.RawExtraction {
	var status string
	var timeline []models.RawEvent

	for _, s := range e.strategies {
		if status == "" {
			if label := strings.TrimSpace(s.FindStatusLabel(doc)); label != "" {
				status = label
				log.Debug().Str("strategy", s.Name()).Str("status", label).Msg("Status label found")
			}
		}
		if len(timeline) == 0 {
			if events := s.FindTimelineEvents(doc); len(events) > 0 {
				timeline = events
				log.Debug().Str("strategy", s.Name()).Int("events", len(events)).Msg("Timeline found")
			}
		}
		if status != "" && len(timeline) > 0 {
			break
		}
	}

	if len(timeline) == 0 {
		timeline = ScanPageText(doc)
		if len(timeline) > 0 {
			log.Debug().Int("events", len(timeline)).Msg("Timeline synthesized from page text")
		}
	}

	return models.NewRawExtraction(status, timeline)
}

// firstText returns the trimmed text of the first selector that matches
// a non-empty element.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		var text string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = strings.Join(strings.Fields(s.Text()), " ")
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}
