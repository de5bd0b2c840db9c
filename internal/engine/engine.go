// Package engine acquires tracking data for a code by trying strategies in
// order and resolving the first acceptable extraction.
package engine

import (
	"context"
	"strings"
	"unicode"

	"github.com/law-makers/tracktime/pkg/models"
)

// Strategy is one way of obtaining raw tracking data for a code
type Strategy interface {
	// Name identifies the strategy in logs, metrics and result sources
	Name() string

	// Acquire returns the raw extraction for code. An error wrapping
	// ErrCodeNotFound is authoritative and stops the fallback chain.
	Acquire(ctx context.Context, code string) (*models.RawExtraction, error)
}

// Candidate is a strategy plus the quality bar its result must clear
type Candidate struct {
	Strategy Strategy
	// MinEvents is exclusive: a result is accepted with more raw events than this
	MinEvents int
	// Final accepts any result the strategy returns without error
	Final bool
}

// accepts reports whether a resolved result from this candidate ends the chain
func (c Candidate) accepts(raw *models.RawExtraction, result models.TrackingResult) bool {
	if c.Final {
		return true
	}
	if raw == nil || result.Failed() {
		return false
	}
	return len(raw.Timeline) > c.MinEvents
}

// NormalizeCode trims a tracking code, removes inner whitespace and uppercases it
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}
