package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/tracktime/pkg/models"
)

func mustDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

func clock2025() time.Time {
	return time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
}

func defaultExtractor() *Extractor {
	return NewExtractor(
		NewExactSelectors(nil, nil),
		NewAttributePatterns(clock2025),
		NewKeywordScan(),
	)
}

const exactFixture = `<html><body>
<h1 data-testid="tracking-status">Bezorgd</h1>
<div data-testid="tracking-timeline">
  <div class="day">Woensdag 15 januari 2025</div>
  <ul>
    <li><span>14:30</span><span>Je pakket is bezorgd in de brievenbus</span></li>
    <li><span>08:05</span><span>•</span><span>De bezorger is onderweg</span></li>
  </ul>
  <div class="day">Dinsdag 14 januari 2025</div>
  <ul><li><span>22:10</span><span>Gesorteerd in sorteercentrum</span></li></ul>
</div>
</body></html>`

func TestExtract_ExactSelectors(t *testing.T) {
	raw := defaultExtractor().Extract(mustDoc(t, exactFixture))

	if raw.StatusText != "Bezorgd" {
		t.Errorf("expected status Bezorgd, got %q", raw.StatusText)
	}
	if !raw.HasValidData {
		t.Error("expected valid data")
	}

	want := []models.RawEvent{
		{When: "15 januari 2025 14:30", Description: "Je pakket is bezorgd in de brievenbus", Location: LocationMailbox},
		{When: "15 januari 2025 08:05", Description: "De bezorger is onderweg", Location: LocationCourier},
		{When: "14 januari 2025 22:10", Description: "Gesorteerd in sorteercentrum", Location: LocationSortingCenter},
	}
	if len(raw.Timeline) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(raw.Timeline), raw.Timeline)
	}
	for i, ev := range raw.Timeline {
		if ev.When != want[i].When || ev.Description != want[i].Description || ev.Location != want[i].Location {
			t.Errorf("event %d = %+v, want %+v", i, ev, want[i])
		}
	}
}

const attributeFixture = `<html><body>
<div class="old-timeline"><p>01-01-2019 10:00 Oude zending</p></div>
<span class="shipment-status-label">In transit</span>
<div class="c-event-timeline">
  <p>12-03-2025 09:15 Zending aangemeld</p>
  <p>13-03-2025 - 18:40</p>
  <p>Aangekomen bij hub Utrecht</p>
</div>
</body></html>`

func TestExtract_AttributePatterns(t *testing.T) {
	doc := mustDoc(t, attributeFixture)
	s := NewAttributePatterns(clock2025)

	if got := s.FindStatusLabel(doc); got != "In transit" {
		t.Errorf("expected status \"In transit\", got %q", got)
	}

	events := s.FindTimelineEvents(doc)
	if len(events) != 2 {
		t.Fatalf("expected 2 events from the current-year section, got %d: %+v", len(events), events)
	}
	if events[0].When != "12-03-2025 09:15" || events[0].Description != "Zending aangemeld" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Description != "Aangekomen bij hub Utrecht" || events[1].Location != LocationHub {
		t.Errorf("unexpected second event %+v", events[1])
	}
}

const keywordFixture = `<html><body><div id="page">
<h2>Je pakket is onderweg</h2>
<div class="a"><p>Geen info</p></div>
<div class="b">
  <p>Ma 13 januari 2025</p><p>10:00</p><p>Ontvangen</p>
  <p>Di 14 januari 2025</p><p>11:00</p><p>Verzonden</p>
</div>
</div></body></html>`

func TestExtract_KeywordScan(t *testing.T) {
	raw := defaultExtractor().Extract(mustDoc(t, keywordFixture))

	if raw.StatusText != "Je pakket is onderweg" {
		t.Errorf("unexpected status %q", raw.StatusText)
	}
	if len(raw.Timeline) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(raw.Timeline), raw.Timeline)
	}
	if raw.Timeline[1].When != "14 januari 2025 11:00" || raw.Timeline[1].Description != "Verzonden" {
		t.Errorf("unexpected event %+v", raw.Timeline[1])
	}
}

func TestExtract_PageTextFallback(t *testing.T) {
	const fixture = `<html><body>
<p>Laatste update: 16-01-2025 12:00.</p>
<p>Ontvangen op 15-01-2025 09:00</p>
<p>Status 15-01-2025 18:00</p>
</body></html>`

	raw := defaultExtractor().Extract(mustDoc(t, fixture))

	if len(raw.Timeline) != 3 {
		t.Fatalf("expected 3 synthesized events, got %d: %+v", len(raw.Timeline), raw.Timeline)
	}
	labels := []string{LabelReceived, LabelUpdate, LabelLastUpdate}
	whens := []string{"15-01-2025 09:00", "15-01-2025 18:00", "16-01-2025 12:00"}
	for i, ev := range raw.Timeline {
		if ev.Description != labels[i] || ev.When != whens[i] {
			t.Errorf("event %d = %+v, want %s at %s", i, ev, labels[i], whens[i])
		}
	}
}

func TestExtract_EmptyPage(t *testing.T) {
	raw := defaultExtractor().Extract(mustDoc(t, `<html><body><p>Welkom</p></body></html>`))
	if raw.HasValidData {
		t.Errorf("expected no valid data, got %+v", raw)
	}
}

func TestEmbeddedState(t *testing.T) {
	const fixture = `<html><head>
<script>window.__INITIAL_STATE__ = {"shipment": {"statusText": "Delivered", "events": [
  {"timestamp": "2025-01-15T14:30:00+01:00", "description": "Delivered", "location": {"address": {"addressLocality": "Utrecht"}}},
  {"timestamp": "2025-01-14T09:00:00+01:00", "description": "Processed", "location": "Amsterdam"}
]}};</script>
<script>document.getElementById('consent').click();</script>
<script src="/static/app.js"></script>
</head><body></body></html>`

	doc := mustDoc(t, fixture)
	s := NewEmbeddedState()

	if got := s.FindStatusLabel(doc); got != "Delivered" {
		t.Errorf("expected status Delivered, got %q", got)
	}

	events := s.FindTimelineEvents(doc)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].At == nil || events[0].At.UTC().Hour() != 13 {
		t.Errorf("expected absolute timestamp, got %+v", events[0])
	}
	if events[0].Location != "Utrecht" || events[1].Location != "Amsterdam" {
		t.Errorf("unexpected locations %q, %q", events[0].Location, events[1].Location)
	}
}

func TestEmbeddedState_DataIsland(t *testing.T) {
	const fixture = `<html><body>
<script type="application/json" id="__NEXT_DATA__">{"props":{"events":[{"date":"15-01-2025 14:30","text":"Bezorgd"}]}}</script>
</body></html>`

	events := NewEmbeddedState().FindTimelineEvents(mustDoc(t, fixture))
	if len(events) != 1 || events[0].When != "15-01-2025 14:30" || events[0].Description != "Bezorgd" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestWalkLines_LookaheadWindow(t *testing.T) {
	lines := []string{
		"6 januari 2025",
		"10:12",
		"|", "-", "•",
		"Te ver weg",
	}
	events := walkLines(lines)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Description != "update" {
		t.Errorf("description beyond the lookahead window must not be used, got %q", events[0].Description)
	}
}

func TestWalkLines_TimeWithoutDateIgnored(t *testing.T) {
	if events := walkLines([]string{"10:12", "Onderweg"}); len(events) != 0 {
		t.Errorf("expected no events without a date header, got %+v", events)
	}
}

func TestClassifyLocation(t *testing.T) {
	tests := map[string]string{
		"Bezorgd in de brievenbus":         LocationMailbox,
		"Afgegeven bij DHL ServicePoint":   LocationServicePoint,
		"Gesorteerd in sorteercentrum Ede": LocationSortingCenter,
		"Onderweg met de bezorger":         LocationCourier,
		"Vertrokken uit terminal Schiphol": LocationTerminal,
		"Aangekomen in hub Leipzig":        LocationHub,
		"Zending aangemeld door verzender": "",
	}
	for in, want := range tests {
		if got := ClassifyLocation(in); got != want {
			t.Errorf("ClassifyLocation(%q) = %q, want %q", in, got, want)
		}
	}
}
