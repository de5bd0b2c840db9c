// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Config defines retry behavior. A Multiplier of 1 gives a fixed backoff.
type Config struct {
	MaxAttempts          int           // Maximum number of attempts, including the first
	InitialBackoff       time.Duration // Backoff before the second attempt
	MaxBackoff           time.Duration // Upper bound for any backoff
	Multiplier           float64       // Backoff growth per attempt
	RetryableStatusCodes []int         // HTTP status codes that should trigger retry
}

// DefaultConfig returns the configuration used for carrier API calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

// Fixed returns a configuration with attempts tries and a constant backoff
func Fixed(attempts int, backoff time.Duration) Config {
	if attempts < 1 {
		attempts = 1
	}
	return Config{
		MaxAttempts:    attempts,
		InitialBackoff: backoff,
		MaxBackoff:     backoff,
		Multiplier:     1,
	}
}

// WithRetry executes fn until it succeeds, returns a non-retryable error, or
// the attempts are exhausted.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Debug().Int("attempts", attempt+1).Msg("Retry succeeded")
			}
			return nil
		}

		lastErr = err

		if !shouldRetry(err, cfg) {
			log.Debug().Err(err).Msg("Error is not retryable")
			return unwrapPermanent(err)
		}

		if attempt < cfg.MaxAttempts-1 {
			backoff := calculateBackoff(attempt, cfg)

			log.Debug().
				Int("attempt", attempt+1).
				Int("max_attempts", cfg.MaxAttempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after backoff")

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	log.Debug().
		Int("attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Max retry attempts exceeded")

	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// calculateBackoff returns InitialBackoff * Multiplier^attempt, capped at MaxBackoff
func calculateBackoff(attempt int, cfg Config) time.Duration {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 1
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(mult, float64(attempt))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// shouldRetry determines if an error is retryable
func shouldRetry(err error, cfg Config) bool {
	if err == nil {
		return false
	}

	var perm permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		statusCode := sc.GetStatusCode()
		for _, code := range cfg.RetryableStatusCodes {
			if statusCode == code {
				return true
			}
		}
		return false
	}

	// transport errors and timeouts
	return true
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func unwrapPermanent(err error) error {
	var perm permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

// StatusCoder is an interface for errors that provide an HTTP status code
type StatusCoder interface {
	GetStatusCode() int
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// GetStatusCode returns the HTTP status code
func (e HTTPError) GetStatusCode() int {
	return e.StatusCode
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, status string, message string) HTTPError {
	return HTTPError{
		StatusCode: statusCode,
		Status:     status,
		Message:    message,
	}
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.GetStatusCode()
	}
	return 0
}
