package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/tracktime/internal/utils/dates"
	"github.com/law-makers/tracktime/pkg/models"
)

// DefaultStatusSelectors match the status heading of the carrier's tracking page
var DefaultStatusSelectors = []string{
	`[data-testid="tracking-status"]`,
	`.c-tracking-result--status-copy-message`,
	`.tracking-status h2`,
	`h1.tracking-status`,
}

// DefaultTimelineSelectors match the event list of the carrier's tracking page
var DefaultTimelineSelectors = []string{
	`[data-testid="tracking-timeline"]`,
	`.c-tracking-result--checkpoint-list`,
	`.tracking-timeline`,
}

// ExactSelectors looks for the known page structure
type ExactSelectors struct {
	StatusSelectors   []string
	TimelineSelectors []string
}

// NewExactSelectors returns the strategy with the given selectors, falling
// back to the defaults for empty lists.
func NewExactSelectors(status, timeline []string) *ExactSelectors {
	if len(status) == 0 {
		status = DefaultStatusSelectors
	}
	if len(timeline) == 0 {
		timeline = DefaultTimelineSelectors
	}
	return &ExactSelectors{StatusSelectors: status, TimelineSelectors: timeline}
}

// Name returns the strategy name
func (s *ExactSelectors) Name() string { return "exact_selectors" }

// FindStatusLabel returns the text of the first matching status selector
func (s *ExactSelectors) FindStatusLabel(doc *goquery.Document) string {
	return firstText(doc, s.StatusSelectors)
}

// FindTimelineEvents walks the first timeline section that yields events
func (s *ExactSelectors) FindTimelineEvents(doc *goquery.Document) []models.RawEvent {
	for _, sel := range s.TimelineSelectors {
		if events := WalkSection(doc.Find(sel).First()); len(events) > 0 {
			return events
		}
	}
	return nil
}

var (
	statusPatterns = []string{
		`[class*="status"]`,
		`[class*="Status"]`,
		`[data-testid*="status"]`,
		`[id*="status"]`,
	}
	timelinePatterns = []string{
		`[class*="timeline"]`,
		`[class*="Timeline"]`,
		`[class*="history"]`,
		`[class*="checkpoint"]`,
		`[class*="event"]`,
		`[data-testid*="timeline"]`,
	}
)

// maxLabelLength bounds what counts as a heading rather than a container
const maxLabelLength = 120

// AttributePatterns matches partial class and attribute names. It survives
// markup changes that keep the naming convention.
type AttributePatterns struct {
	now func() time.Time
}

// NewAttributePatterns creates the strategy; now supplies the current year
func NewAttributePatterns(now func() time.Time) *AttributePatterns {
	if now == nil {
		now = time.Now
	}
	return &AttributePatterns{now: now}
}

// Name returns the strategy name
func (s *AttributePatterns) Name() string { return "attribute_patterns" }

// FindStatusLabel returns the first short text inside a status-like element
func (s *AttributePatterns) FindStatusLabel(doc *goquery.Document) string {
	var label string
	doc.Find(strings.Join(statusPatterns, ", ")).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text != "" && len(text) <= maxLabelLength {
			label = text
			return false
		}
		return true
	})
	return label
}

// FindTimelineEvents walks the first timeline-like element that mentions the
// current year.
func (s *AttributePatterns) FindTimelineEvents(doc *goquery.Document) []models.RawEvent {
	year := strconv.Itoa(s.now().Year())
	var events []models.RawEvent
	doc.Find(strings.Join(timelinePatterns, ", ")).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), year) {
			return true
		}
		events = WalkSection(sel)
		return len(events) == 0
	})
	return events
}

var statusWords = []string{
	"bezorgd", "onderweg", "verwerkt", "afgeleverd", "gesorteerd",
	"delivered", "in transit", "processed", "out for delivery",
}

// KeywordScan is the last resort: headings containing status words and the
// container with the most dates.
type KeywordScan struct{}

// NewKeywordScan creates the strategy
func NewKeywordScan() *KeywordScan { return &KeywordScan{} }

// Name returns the strategy name
func (s *KeywordScan) Name() string { return "keyword_scan" }

// FindStatusLabel returns the first heading that contains a status word
func (s *KeywordScan) FindStatusLabel(doc *goquery.Document) string {
	var label string
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		lower := strings.ToLower(text)
		for _, w := range statusWords {
			if strings.Contains(lower, w) {
				label = text
				return false
			}
		}
		return true
	})
	return label
}

// FindTimelineEvents walks the most specific container with the highest
// number of dates in its text.
func (s *KeywordScan) FindTimelineEvents(doc *goquery.Document) []models.RawEvent {
	var best *goquery.Selection
	bestCount := 0
	doc.Find("section, article, div, ol, ul, table").Each(func(_ int, sel *goquery.Selection) {
		n := dates.CountDates(strings.Join(textLines(sel.Nodes...), "\n"))
		// descendants come after their ancestors, so >= keeps the innermost
		if n > 0 && n >= bestCount {
			best, bestCount = sel, n
		}
	})
	if best == nil {
		return nil
	}
	return WalkSection(best)
}
