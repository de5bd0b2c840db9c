// Package batch runs many tracking codes through an acquirer in rounds of
// bounded concurrency.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/tracktime/internal/engine/resolve"
	"github.com/law-makers/tracktime/internal/obs"
	"github.com/law-makers/tracktime/internal/reqctx"
	"github.com/law-makers/tracktime/internal/retry"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// Defaults for BatchOptions fields left at zero
const (
	DefaultBatchSize    = 3
	DefaultDelay        = 2 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 500 * time.Millisecond
)

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() models.BatchOptions {
	return models.BatchOptions{
		BatchSize:           DefaultBatchSize,
		DelayBetweenBatches: DefaultDelay,
		MaxRetries:          DefaultMaxRetries,
		RetryBackoff:        DefaultRetryBackoff,
	}
}

// Acquirer produces a result for one code and never fails
type Acquirer interface {
	Acquire(ctx context.Context, code string) models.TrackingResult
}

// ProgressFunc is called after every finished code
type ProgressFunc func(done, total int, result models.TrackingResult)

// errFailedResult makes the retry loop try an error result again
var errFailedResult = errors.New("acquisition returned an error result")

// Runner executes batch runs
type Runner struct {
	acquirer Acquirer
	opts     models.BatchOptions
	ceiling  int
	progress ProgressFunc
	metrics  *obs.Metrics
	resolver *resolve.Resolver
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Runner
type Option func(*Runner)

// WithProgress registers a progress callback. It is called from worker
// goroutines, one call at a time.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithMetrics counts batch outcomes
func WithMetrics(m *obs.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithConcurrencyCeiling overrides the OptimalConcurrency clamp
func WithConcurrencyCeiling(n int) Option {
	return func(r *Runner) { r.ceiling = n }
}

// NewRunner creates a Runner. Zero option fields take the defaults, negative
// delays and backoffs become zero.
func NewRunner(acquirer Acquirer, opts models.BatchOptions, options ...Option) *Runner {
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.DelayBetweenBatches < 0 {
		opts.DelayBetweenBatches = 0
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	}

	r := &Runner{
		acquirer: acquirer,
		opts:     opts,
		resolver: resolve.New(),
		sleep:    sleepCtx,
	}
	for _, o := range options {
		o(r)
	}
	if r.ceiling == 0 {
		r.ceiling = OptimalConcurrency()
	}
	r.opts.BatchSize = clampBatchSize(r.opts.BatchSize, r.ceiling)
	return r
}

// Options returns the effective options
func (r *Runner) Options() models.BatchOptions {
	return r.opts
}

// Run processes codes in rounds of BatchSize and returns the summary. It
// always returns a complete summary; cancelling ctx turns the remaining codes
// into error results.
func (r *Runner) Run(ctx context.Context, codes []string) models.BatchRunSummary {
	summary := models.BatchRunSummary{
		RunID:     uuid.NewString(),
		Total:     len(codes),
		Results:   make([]models.TrackingResult, 0, len(codes)),
		StartedAt: time.Now(),
	}
	ctx = reqctx.WithRun(ctx, summary.RunID)

	logger := log.With().Str("run_id", summary.RunID).Logger()
	logger.Info().
		Int("total", len(codes)).
		Int("batch_size", r.opts.BatchSize).
		Int("max_retries", r.opts.MaxRetries).
		Msg("Batch run started")

	var mu sync.Mutex
	record := func(result models.TrackingResult) {
		mu.Lock()
		defer mu.Unlock()
		summary.Results = append(summary.Results, result)
		if result.Failed() {
			summary.Failed++
		} else {
			summary.Successful++
		}
		if r.metrics != nil {
			outcome := "success"
			if result.Failed() {
				outcome = "failed"
			}
			r.metrics.BatchItems.WithLabelValues(outcome).Inc()
		}
		if r.progress != nil {
			r.progress(len(summary.Results), summary.Total, result)
		}
	}

	for start := 0; start < len(codes); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(codes))
		round := codes[start:end]

		if ctx.Err() != nil {
			r.abandon(codes[start:], ctx.Err(), record)
			break
		}

		logger.Debug().Int("round_start", start).Int("round_size", len(round)).Msg("Starting round")

		var wg sync.WaitGroup
		for _, code := range round {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				record(r.process(ctx, code))
			}(code)
		}
		wg.Wait()

		if end < len(codes) && r.opts.DelayBetweenBatches > 0 {
			if err := r.sleep(ctx, r.opts.DelayBetweenBatches); err != nil {
				r.abandon(codes[end:], err, record)
				break
			}
		}
	}

	summary.FinishedAt = time.Now()
	summary.TotalTimeMs = summary.FinishedAt.Sub(summary.StartedAt).Milliseconds()
	if summary.Total > 0 {
		summary.AverageTimeMs = summary.TotalTimeMs / int64(summary.Total)
	}

	logger.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Int64("elapsed_ms", summary.TotalTimeMs).
		Msg("Batch run finished")

	return summary
}

// process acquires one code, retrying error results with a fixed backoff
func (r *Runner) process(ctx context.Context, code string) models.TrackingResult {
	var result models.TrackingResult
	attempts := 0

	err := retry.WithRetry(ctx, retry.Fixed(r.opts.MaxRetries, r.opts.RetryBackoff), func() error {
		attempts++
		result = r.acquireSafe(ctx, code)
		if result.Failed() {
			return errFailedResult
		}
		return nil
	})
	if err != nil {
		log.Warn().
			Str("tracking_code", code).
			Int("attempts", attempts).
			Str("message", result.Message).
			Msg("Tracking code failed")
	}
	return result
}

func (r *Runner) acquireSafe(ctx context.Context, code string) (result models.TrackingResult) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Str("tracking_code", code).
				Bytes("stack", debug.Stack()).
				Msgf("Acquisition panicked: %v", p)
			result = r.resolver.Failure(code, fmt.Sprintf("internal error: %v", p))
		}
	}()
	return r.acquirer.Acquire(ctx, code)
}

func (r *Runner) abandon(codes []string, cause error, record func(models.TrackingResult)) {
	log.Warn().Err(cause).Int("remaining", len(codes)).Msg("Batch run cancelled")
	for _, code := range codes {
		record(r.resolver.Failure(code, fmt.Sprintf("cancelled: %v", cause)))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
