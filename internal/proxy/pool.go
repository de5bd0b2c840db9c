// Package proxy rotates the proxies browser launches go through.
package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// ErrNoProxies is returned by an empty pool
var ErrNoProxies = errors.New("no proxies configured")

// Pool hands out proxies round-robin, skipping recently failed ones
type Pool struct {
	proxies  []string
	index    int
	mu       sync.Mutex
	failed   map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewPool creates a Pool over proxies
func NewPool(proxies []string, cooldown time.Duration) *Pool {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Pool{
		proxies:  proxies,
		failed:   make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Parse splits a comma separated proxy list and validates every entry
func Parse(list string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", p)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q in %q", u.Scheme, p)
		}
		out = append(out, p)
	}
	return out, nil
}

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	return len(p.proxies)
}

// GetNext returns the next healthy proxy. When every proxy is cooling down
// the one that failed longest ago is returned.
func (p *Pool) GetNext() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return "", ErrNoProxies
	}

	now := p.now()
	oldest := ""
	var oldestAt time.Time

	for range p.proxies {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		failTime, failed := p.failed[proxy]
		if !failed {
			return proxy, nil
		}
		if now.Sub(failTime) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy, nil
		}
		if oldest == "" || failTime.Before(oldestAt) {
			oldest, oldestAt = proxy, failTime
		}
	}
	return oldest, nil
}

// MarkFailed skips proxy for the cooldown period
func (p *Pool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
}

// MarkHealthy clears the failure status of a proxy
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
