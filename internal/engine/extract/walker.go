package extract

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/tracktime/internal/utils/dates"
	"github.com/law-makers/tracktime/pkg/models"
	"golang.org/x/net/html"
)

// lookahead is how many text nodes after a time line may hold its description
const lookahead = 3

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
}

// textLines returns the non-empty text nodes under nodes in document order,
// with whitespace collapsed.
func textLines(nodes ...*html.Node) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				lines = append(lines, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return lines
}

// WalkSection extracts timeline events from a section of the page
func WalkSection(sel *goquery.Selection) []models.RawEvent {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return walkLines(textLines(sel.Nodes...))
}

// walkLines turns text lines into events. A date line sets the current date;
// a time-only line combined with the current date and the next descriptive
// line forms an event. Lines carrying both date and time stand on their own.
func walkLines(lines []string) []models.RawEvent {
	var events []models.RawEvent
	currentDate := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if found := dates.FindDateTimes(line); len(found) > 0 {
			when := found[0]
			desc := cleanDescription(strings.Replace(line, when, "", 1))
			if desc == "" {
				var next int
				desc, next = describe(lines, i)
				if next > i {
					i = next
				}
			}
			events = append(events, newEvent(when, desc))
			currentDate = dates.FindDate(when)
			continue
		}

		if d := dates.FindDate(line); d != "" {
			currentDate = d
			continue
		}

		if currentDate != "" && dates.IsTimeOnly(line) {
			desc, next := describe(lines, i)
			if next > i {
				i = next
			}
			events = append(events, newEvent(currentDate+" "+line, desc))
		}
	}
	return events
}

// describe finds the description for the event at lines[i] within the
// lookahead window. It returns the index of the consumed line, or i.
func describe(lines []string, i int) (string, int) {
	for j := i + 1; j <= i+lookahead && j < len(lines); j++ {
		l := lines[j]
		if dates.IsTimeOnly(l) || dates.HasDate(l) {
			break
		}
		if !hasLetter(l) {
			continue
		}
		return l, j
	}
	return "", i
}

func newEvent(when, desc string) models.RawEvent {
	if desc == "" {
		desc = "update"
	}
	return models.RawEvent{
		When:        when,
		Description: desc,
		Location:    ClassifyLocation(desc),
	}
}

func cleanDescription(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("-–,:|•·", r)
	})
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
