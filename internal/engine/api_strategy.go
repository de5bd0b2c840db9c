package engine

import (
	"context"
	"errors"

	"github.com/law-makers/tracktime/internal/engine/api"
	"github.com/law-makers/tracktime/internal/retry"
	"github.com/law-makers/tracktime/pkg/models"
)

// Tracker is the structured carrier API
type Tracker interface {
	HasKey() bool
	Track(ctx context.Context, code string) (*models.RawExtraction, error)
}

// APIStrategy reads tracking data from the carrier API
type APIStrategy struct {
	client Tracker
}

// NewAPIStrategy creates an APIStrategy over client
func NewAPIStrategy(client Tracker) *APIStrategy {
	return &APIStrategy{client: client}
}

func (s *APIStrategy) Name() string { return "api" }

// Acquire maps a carrier 404 to NOT_FOUND and every other failure to
// UPSTREAM_ERROR. Without an API key it returns ErrNoAPIKey.
func (s *APIStrategy) Acquire(ctx context.Context, code string) (*models.RawExtraction, error) {
	if s.client == nil || !s.client.HasKey() {
		return nil, ErrNoAPIKey
	}

	raw, err := s.client.Track(ctx, code)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, NewEngineError(ErrCodeNotFound, "carrier API has no shipment for code", err).
				WithDetail("tracking_code", code)
		}
		e := NewEngineError(ErrCodeUpstream, "carrier API request failed", err).WithRetry()
		if status := retry.StatusCode(err); status != 0 {
			e.WithDetail("status_code", status)
		}
		return nil, e
	}
	return raw, nil
}
