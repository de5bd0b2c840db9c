// Package resolve turns a raw extraction into a TrackingResult: canonical
// status, handoff and delivery moments, and the transit duration.
package resolve

import (
	"sort"
	"strings"
	"time"

	"github.com/law-makers/tracktime/internal/utils/dates"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// Resolver applies the status state machine and duration rules
type Resolver struct {
	now func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides the wall clock used for in-transit durations
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a Resolver
func New(opts ...Option) *Resolver {
	r := &Resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds the result for code from raw. A nil raw is treated as an
// extraction without data.
func (r *Resolver) Resolve(code string, raw *models.RawExtraction) models.TrackingResult {
	now := r.now()
	result := models.TrackingResult{
		TrackingCode:   code,
		TimelineEvents: []models.TimelineEvent{},
		FetchedAt:      now,
	}

	if raw == nil || !raw.HasValidData {
		result.DeliveryStatus = models.StatusNotFound
		result.Duration = msgUndetermined
		return result
	}

	events := r.normalize(code, raw.Timeline)
	result.TimelineEvents = events
	result.DeliveryStatus = r.status(raw)

	if len(events) > 0 {
		first := events[0].Timestamp
		last := events[len(events)-1].Timestamp
		result.HandoffMoment = &first
		result.LastUpdate = &last
	}

	if result.DeliveryStatus == models.StatusDelivered && len(events) > 0 {
		if ev, ok := latestDelivery(events); ok {
			at := ev.Timestamp
			result.DeliveryMoment = &at
		} else {
			at := *result.LastUpdate
			result.DeliveryMoment = &at
			result.Message = "delivery moment approximated by latest update"
			log.Info().
				Str("tracking_code", code).
				Time("delivery_moment", at).
				Msg("No delivery event in timeline, using latest timestamp")
		}
	}

	d := computeDuration(result.HandoffMoment, result.DeliveryMoment, result.DeliveryStatus, now)
	result.Duration = d.text
	result.DurationDays = d.days
	result.DurationPartial = d.partial

	if _, ok := MatchLabel(raw.StatusText); !ok && raw.StatusText != "" && result.DeliveryStatus == models.StatusNotFound {
		result.Message = "unrecognized status: " + strings.TrimSpace(raw.StatusText)
	}
	return result
}

// Failure builds the error result for code
func (r *Resolver) Failure(code, message string) models.TrackingResult {
	return models.TrackingResult{
		TrackingCode:   code,
		DeliveryStatus: models.StatusError,
		TimelineEvents: []models.TimelineEvent{},
		Duration:       msgUndetermined,
		Message:        message,
		FetchedAt:      r.now(),
	}
}

func (r *Resolver) status(raw *models.RawExtraction) models.DeliveryStatus {
	if status, ok := MatchLabel(raw.StatusText); ok {
		return status
	}
	if len(raw.Timeline) > 0 {
		return models.StatusInTransit
	}
	// Unrecognized text without a timeline is no evidence the shipment exists.
	return models.StatusNotFound
}

// normalize parses timestamps, drops events without one, removes duplicates
// and sorts ascending.
func (r *Resolver) normalize(code string, raw []models.RawEvent) []models.TimelineEvent {
	events := make([]models.TimelineEvent, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, ev := range raw {
		ts, ok := timestampOf(ev)
		if !ok {
			log.Debug().
				Str("tracking_code", code).
				Str("when", ev.When).
				Str("description", ev.Description).
				Msg("PARSE_FAILURE: dropping event without usable timestamp")
			continue
		}

		desc := strings.TrimSpace(ev.Description)
		key := ts.UTC().Format(time.RFC3339) + "|" + strings.ToLower(desc)
		if seen[key] {
			continue
		}
		seen[key] = true

		events = append(events, models.TimelineEvent{
			Timestamp:   ts,
			Description: desc,
			Location:    ev.Location,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func timestampOf(ev models.RawEvent) (time.Time, bool) {
	if ev.At != nil && !ev.At.IsZero() {
		return *ev.At, true
	}
	if ts, ok := dates.Parse(ev.When); ok {
		return ts, true
	}
	return dates.Parse(ev.Description)
}

func latestDelivery(events []models.TimelineEvent) (models.TimelineEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if IsDeliveryEvent(events[i].Description) {
			return events[i], true
		}
	}
	return models.TimelineEvent{}, false
}
