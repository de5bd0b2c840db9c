// Package sink receives one Outcome per finished acquisition. It is the
// boundary to whatever stores or reports results.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/law-makers/tracktime/internal/obs"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome is the record handed to a Sink
type Outcome struct {
	TrackingCode     string
	Status           models.DeliveryStatus
	Success          bool
	Timestamp        time.Time
	ProcessingTimeMs int64
	Source           string
	Error            string
	RequestID        string
}

// FromResult builds the Outcome for result
func FromResult(result models.TrackingResult, requestID string) Outcome {
	o := Outcome{
		TrackingCode:     result.TrackingCode,
		Status:           result.DeliveryStatus,
		Success:          !result.Failed(),
		Timestamp:        result.FetchedAt,
		ProcessingTimeMs: result.ProcessingTimeMs,
		Source:           result.Source,
		RequestID:        requestID,
	}
	if result.Failed() {
		o.Error = result.Message
	}
	return o
}

// Sink records outcomes
type Sink interface {
	Record(ctx context.Context, o Outcome) error
}

// LogSink writes each outcome as a structured log line
type LogSink struct {
	Level zerolog.Level
}

func (s LogSink) Record(_ context.Context, o Outcome) error {
	lvl := s.Level
	if !o.Success {
		lvl = zerolog.WarnLevel
	}
	log.WithLevel(lvl).
		Str("tracking_code", o.TrackingCode).
		Str("status", string(o.Status)).
		Bool("success", o.Success).
		Int64("elapsed_ms", o.ProcessingTimeMs).
		Str("strategy", o.Source).
		Str("request_id", o.RequestID).
		Str("error", o.Error).
		Msg("Acquisition recorded")
	return nil
}

// MetricsSink feeds the Prometheus collectors
type MetricsSink struct {
	Metrics *obs.Metrics
}

func (s MetricsSink) Record(_ context.Context, o Outcome) error {
	if s.Metrics == nil {
		return nil
	}
	if o.Source == "cache" {
		s.Metrics.CacheHits.Inc()
	}
	s.Metrics.ObserveAcquisition(o.Source, string(o.Status), time.Duration(o.ProcessingTimeMs)*time.Millisecond)
	return nil
}

// Multi fans an outcome out to every sink, joining their errors
type Multi []Sink

func (m Multi) Record(ctx context.Context, o Outcome) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every outcome
type Discard struct{}

func (Discard) Record(context.Context, Outcome) error { return nil }
