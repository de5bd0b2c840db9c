// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests per host. Both the carrier API and the tracking
// site go through one, so concurrent batch rounds stay polite.
type RateLimiter interface {
	// Wait blocks until a request for the given URL can proceed.
	// If the context is cancelled first, its error is returned.
	Wait(ctx context.Context, urlStr string) error

	// Allow reports whether a request for the given URL may proceed now
	Allow(urlStr string) bool
}

// DomainLimiter is a token bucket per host
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2.0
	}
	if burst <= 0 {
		burst = 4
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the request for the given URL can proceed
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	host := extractHost(urlStr)
	if host == "" {
		// unparseable URLs fail later with a better error
		return nil
	}
	return dl.getLimiter(host).Wait(ctx)
}

// Allow reports whether a request may proceed without waiting
func (dl *DomainLimiter) Allow(urlStr string) bool {
	host := extractHost(urlStr)
	if host == "" {
		return true
	}
	return dl.getLimiter(host).Allow()
}

func (dl *DomainLimiter) getLimiter(host string) *rate.Limiter {
	dl.mu.RLock()
	limiter, exists := dl.limiters[host]
	dl.mu.RUnlock()

	if exists {
		return limiter
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if limiter, exists := dl.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(dl.perHost, dl.burst)
	dl.limiters[host] = limiter
	return limiter
}

// Hosts returns the number of hosts seen so far
func (dl *DomainLimiter) Hosts() int {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return len(dl.limiters)
}

func extractHost(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}

// Unlimited never waits
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context, _ string) error { return ctx.Err() }

// Allow always allows
func (Unlimited) Allow(string) bool { return true }
