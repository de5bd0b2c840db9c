package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// scriptBudget bounds the time spent evaluating the inline scripts of a page
const scriptBudget = 2 * time.Second

var (
	timeKeys     = []string{"timestamp", "datetime", "dateTime", "date", "time", "eventDate"}
	descKeys     = []string{"description", "statusDescription", "status", "message", "text", "label", "title"}
	statusKeys   = []string{"statusText", "statusDescription", "status", "state"}
	locationKeys = []string{"location", "city", "place", "addressLocality"}
)

// EmbeddedState evaluates the inline scripts of a page in a sandboxed VM and
// harvests tracking data the page keeps in global state, such as
// window.__INITIAL_STATE__ or a JSON data island.
type EmbeddedState struct{}

// NewEmbeddedState creates the strategy
func NewEmbeddedState() *EmbeddedState { return &EmbeddedState{} }

// Name returns the strategy name
func (s *EmbeddedState) Name() string { return "embedded_state" }

// FindStatusLabel returns the shallowest status-like string in page state
func (s *EmbeddedState) FindStatusLabel(doc *goquery.Document) string {
	for _, v := range s.globals(doc) {
		if label := findStatus(v, 0); label != "" {
			return label
		}
	}
	return ""
}

// FindTimelineEvents returns the largest list of event-like objects in page state
func (s *EmbeddedState) FindTimelineEvents(doc *goquery.Document) []models.RawEvent {
	var best []models.RawEvent
	for _, v := range s.globals(doc) {
		collectEvents(v, 0, &best)
	}
	return best
}

// globals runs the inline scripts of doc and returns the values of the
// non-standard globals they defined, plus any JSON data islands.
func (s *EmbeddedState) globals(doc *goquery.Document) []interface{} {
	vm := goja.New()
	timer := time.AfterFunc(scriptBudget, func() {
		vm.Interrupt("script budget exceeded")
	})
	defer timer.Stop()

	// Just enough of a browser to let state assignments run
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{})
	vm.Set("console", map[string]interface{}{
		"log":   func(goja.FunctionCall) goja.Value { return nil },
		"error": func(goja.FunctionCall) goja.Value { return nil },
	})

	var values []interface{}
	doc.Find("script").Each(func(i int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		code := strings.TrimSpace(sel.Text())
		if code == "" {
			return
		}

		typ, _ := sel.Attr("type")
		if strings.Contains(typ, "json") {
			v, err := vm.RunString("(" + code + ")")
			if err != nil {
				log.Debug().Err(err).Int("script", i).Msg("PARSE_FAILURE: data island is not valid JSON")
				return
			}
			values = append(values, v.Export())
			return
		}
		if typ != "" && !strings.Contains(typ, "javascript") && typ != "module" {
			return
		}
		if _, err := vm.RunString(code); err != nil {
			// most page scripts need a real DOM
			log.Trace().Err(err).Int("script", i).Msg("Inline script failed")
		}
	})

	for _, key := range vm.GlobalObject().Keys() {
		if isStandardGlobal(key) {
			continue
		}
		if v := vm.Get(key); v != nil {
			if exported := v.Export(); exported != nil {
				values = append(values, exported)
			}
		}
	}
	return values
}

const maxDepth = 12

func findStatus(v interface{}, depth int) string {
	if depth > maxDepth {
		return ""
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for _, k := range statusKeys {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" && !looksLikeEvent(t) {
				return strings.TrimSpace(s)
			}
		}
		for _, child := range t {
			if s := findStatus(child, depth+1); s != "" {
				return s
			}
		}
	case []interface{}:
		// lists hold events, not the shipment status
		return ""
	}
	return ""
}

// collectEvents keeps the largest list of event-like objects found under v
func collectEvents(v interface{}, depth int, best *[]models.RawEvent) {
	if depth > maxDepth {
		return
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for _, child := range t {
			collectEvents(child, depth+1, best)
		}
	case []interface{}:
		var events []models.RawEvent
		for _, item := range t {
			m, ok := item.(map[string]interface{})
			if !ok || !looksLikeEvent(m) {
				continue
			}
			events = append(events, toRawEvent(m))
		}
		if len(events) > len(*best) {
			*best = events
		}
		for _, item := range t {
			collectEvents(item, depth+1, best)
		}
	}
}

func looksLikeEvent(m map[string]interface{}) bool {
	return firstKey(m, timeKeys) != nil && firstKey(m, descKeys) != nil
}

func toRawEvent(m map[string]interface{}) models.RawEvent {
	ev := models.RawEvent{}

	switch ts := firstKey(m, timeKeys).(type) {
	case string:
		if at, err := time.Parse(time.RFC3339, ts); err == nil {
			ev.At = &at
		} else {
			ev.When = ts
		}
	case int64:
		at := time.UnixMilli(ts)
		ev.At = &at
	case float64:
		at := time.UnixMilli(int64(ts))
		ev.At = &at
	}

	if d, ok := firstKey(m, descKeys).(string); ok {
		ev.Description = strings.TrimSpace(d)
	}
	ev.Location = LocationName(firstKey(m, locationKeys))
	if ev.Location == "" {
		ev.Location = ClassifyLocation(ev.Description)
	}
	return ev
}

// LocationName flattens a location that is either a plain string or an
// object with an address locality.
func LocationName(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		if addr, ok := t["address"].(map[string]interface{}); ok {
			return LocationName(addr)
		}
		for _, k := range locationKeys {
			if s, ok := t[k].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
	return ""
}

func firstKey(m map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func isStandardGlobal(key string) bool {
	standards := map[string]bool{
		"window": true, "self": true, "document": true, "console": true,
		"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
		"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
		"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
		"isFinite": true, "undefined": true, "NaN": true, "Infinity": true,
	}
	return standards[key]
}
