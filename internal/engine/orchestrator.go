// internal/engine/orchestrator.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/law-makers/tracktime/internal/cache"
	"github.com/law-makers/tracktime/internal/engine/resolve"
	"github.com/law-makers/tracktime/internal/reqctx"
	"github.com/law-makers/tracktime/internal/sink"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// OrchestratorOptions holds the collaborators of an Orchestrator. Nil fields
// get no-op defaults.
type OrchestratorOptions struct {
	Resolver *resolve.Resolver
	Cache    cache.Cache
	CacheTTL time.Duration
	Sink     sink.Sink
}

// Orchestrator runs candidates in order until one produces an acceptable
// result
type Orchestrator struct {
	candidates []Candidate
	resolver   *resolve.Resolver
	cache      cache.Cache
	cacheTTL   time.Duration
	sink       sink.Sink
}

// NewOrchestrator creates an Orchestrator over candidates, in priority order
func NewOrchestrator(candidates []Candidate, opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		candidates: candidates,
		resolver:   opts.Resolver,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		sink:       opts.Sink,
	}
	if o.resolver == nil {
		o.resolver = resolve.New()
	}
	if o.cache == nil {
		o.cache = cache.Nop{}
	}
	if o.sink == nil {
		o.sink = sink.Discard{}
	}
	return o
}

// Candidates returns the configured candidates
func (o *Orchestrator) Candidates() []Candidate {
	return o.candidates
}

// Acquire returns the tracking result for code. It never fails: every problem
// ends up as an error result with a readable message.
func (o *Orchestrator) Acquire(ctx context.Context, code string) models.TrackingResult {
	normalized := NormalizeCode(code)
	ctx = reqctx.WithRequestContext(ctx, normalized)
	rc := reqctx.GetRequestContext(ctx)

	logger := log.With().
		Str("tracking_code", normalized).
		Str("request_id", rc.RequestID).
		Logger()

	var result models.TrackingResult
	if normalized == "" {
		result = o.resolver.Failure(code, ErrEmptyCode.Error())
	} else if cached, ok := o.cache.Get(ctx, normalized); ok {
		result = *cached
		result.Source = "cache"
		logger.Debug().Str("status", string(result.DeliveryStatus)).Msg("Served from cache")
	} else {
		var confirmed bool
		result, confirmed = o.run(ctx, normalized)
		if cacheable(result, confirmed) {
			if err := o.cache.Set(ctx, result, o.cacheTTL); err != nil {
				logger.Warn().Err(err).Msg("Failed to cache result")
			}
		}
	}

	result.ProcessingTimeMs = rc.Elapsed().Milliseconds()

	if err := o.sink.Record(ctx, sink.FromResult(result, rc.RequestID)); err != nil {
		logger.Warn().Err(err).Msg("Failed to record outcome")
	}

	logger.Info().
		Str("status", string(result.DeliveryStatus)).
		Str("strategy", result.Source).
		Int("events", len(result.TimelineEvents)).
		Int64("elapsed_ms", result.ProcessingTimeMs).
		Msg("Acquisition finished")

	return result
}

// cacheable reports whether result may be served from the cache later. A
// not_found only qualifies when the carrier API confirmed it; an empty page
// may just not have rendered its results.
func cacheable(result models.TrackingResult, confirmed bool) bool {
	if !result.DeliveryStatus.IsTerminal() {
		return false
	}
	return result.DeliveryStatus != models.StatusNotFound || confirmed
}

// run tries the candidates for code. confirmed is set when the carrier
// authoritatively answered not found.
func (o *Orchestrator) run(ctx context.Context, code string) (result models.TrackingResult, confirmed bool) {
	var (
		lastErr    error
		best       *models.TrackingResult
		bestEvents int
	)

	for _, c := range o.candidates {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		name := c.Strategy.Name()
		raw, err := o.try(ctx, c.Strategy, code)
		if err != nil {
			if errors.Is(err, ErrNoAPIKey) {
				log.Debug().Str("strategy", name).Msg("Skipping strategy without API key")
				continue
			}
			if IsNotFound(err) {
				result = o.resolver.Resolve(code, nil)
				result.Source = name
				result.Message = Describe(err)
				return result, true
			}
			lastErr = reqctx.NewRequestError(ctx, err)
			log.Warn().
				Err(lastErr).
				Str("tracking_code", code).
				Str("strategy", name).
				Str("code", string(CodeOf(err))).
				Msg("Strategy failed, falling back")
			continue
		}

		result = o.resolver.Resolve(code, raw)
		result.Source = name

		if c.accepts(raw, result) {
			return result, false
		}

		events := 0
		if raw != nil {
			events = len(raw.Timeline)
		}
		log.Debug().
			Str("tracking_code", code).
			Str("strategy", name).
			Int("events", events).
			Int("min_events", c.MinEvents).
			Msg("Result below quality bar, falling back")

		if events > 0 && !result.Failed() && (best == nil || events > bestEvents) {
			r := result
			best, bestEvents = &r, events
		}
	}

	if best != nil {
		log.Info().
			Str("tracking_code", code).
			Str("strategy", best.Source).
			Msg("Using best partial result")
		return *best, false
	}

	msg := Describe(lastErr)
	if lastErr == nil {
		msg = ErrNoStrategy.Error()
	}
	return o.resolver.Failure(code, msg), false
}

// try runs one strategy, turning a panic into an error
func (o *Orchestrator) try(ctx context.Context, s Strategy, code string) (raw *models.RawExtraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("strategy", s.Name()).
				Str("tracking_code", code).
				Bytes("stack", debug.Stack()).
				Msgf("Strategy panicked: %v", r)
			raw, err = nil, fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Acquire(ctx, code)
}
