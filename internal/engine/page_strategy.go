package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/tracktime/internal/engine/dynamic"
	"github.com/law-makers/tracktime/internal/engine/extract"
	"github.com/law-makers/tracktime/internal/ratelimit"
	urlutil "github.com/law-makers/tracktime/internal/utils/url"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

// PageOptions configures the browser-backed strategies
type PageOptions struct {
	// URLTemplates hold one %s each. The first is the primary tracking page,
	// the rest are alternates tried by LiveStrategy.
	URLTemplates      []string
	WaitSelector      string
	WaitTimeout       time.Duration
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	Limiter           ratelimit.RateLimiter
}

func (o PageOptions) withDefaults() PageOptions {
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 10 * time.Second
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.Limiter == nil {
		o.Limiter = ratelimit.Unlimited{}
	}
	return o
}

// BroadStrategy renders the primary tracking page once, without interacting
// with it, and reads both the DOM and any inline script state.
type BroadStrategy struct {
	loader    dynamic.PageLoader
	extractor *extract.Extractor
	opts      PageOptions
}

// NewBroadStrategy creates a BroadStrategy
func NewBroadStrategy(loader dynamic.PageLoader, extractor *extract.Extractor, opts PageOptions) *BroadStrategy {
	return &BroadStrategy{loader: loader, extractor: extractor, opts: opts.withDefaults()}
}

func (s *BroadStrategy) Name() string { return "broad" }

func (s *BroadStrategy) Acquire(ctx context.Context, code string) (*models.RawExtraction, error) {
	if len(s.opts.URLTemplates) == 0 {
		return nil, NewEngineError(ErrCodeUpstream, "no tracking page configured", nil)
	}
	target, err := urlutil.TrackingURL(s.opts.URLTemplates[0], code)
	if err != nil {
		return nil, err
	}
	if err := s.opts.Limiter.Wait(ctx, target); err != nil {
		return nil, err
	}

	page, err := s.loader.Load(ctx, dynamic.LoadRequest{
		URL:               target,
		NavigationTimeout: s.opts.NavigationTimeout,
		WaitSelector:      s.opts.WaitSelector,
		WaitTimeout:       s.opts.WaitTimeout,
	})
	if err != nil {
		return nil, pageError(err, target)
	}
	return extractPage(s.extractor, page, target)
}

// LiveStrategy interacts with the tracking page: it accepts the consent
// banner, expands collapsed details and moves on to alternate URLs when it
// lands somewhere unexpected.
type LiveStrategy struct {
	loader    dynamic.PageLoader
	extractor *extract.Extractor
	opts      PageOptions
}

// NewLiveStrategy creates a LiveStrategy
func NewLiveStrategy(loader dynamic.PageLoader, extractor *extract.Extractor, opts PageOptions) *LiveStrategy {
	return &LiveStrategy{loader: loader, extractor: extractor, opts: opts.withDefaults()}
}

func (s *LiveStrategy) Name() string { return "live" }

func (s *LiveStrategy) Acquire(ctx context.Context, code string) (*models.RawExtraction, error) {
	if len(s.opts.URLTemplates) == 0 {
		return nil, NewEngineError(ErrCodeUpstream, "no tracking page configured", nil)
	}

	var lastErr error
	var empty *models.RawExtraction

	for i, tmpl := range s.opts.URLTemplates {
		target, err := urlutil.TrackingURL(tmpl, code)
		if err != nil {
			lastErr = err
			continue
		}
		if err := s.opts.Limiter.Wait(ctx, target); err != nil {
			return nil, err
		}

		page, err := s.loader.Load(ctx, dynamic.LoadRequest{
			URL:               target,
			NavigationTimeout: s.opts.NavigationTimeout,
			WaitSelector:      s.opts.WaitSelector,
			WaitTimeout:       s.opts.WaitTimeout,
			HandleConsent:     true,
			ExpandDetails:     true,
			SettleDelay:       s.opts.SettleDelay,
		})
		if err != nil {
			lastErr = pageError(err, target)
			if CodeOf(lastErr) == ErrCodeResourceUnavailable || ctx.Err() != nil {
				return nil, lastErr
			}
			log.Debug().Err(err).Int("attempt", i+1).Str("url", target).Msg("Tracking page failed, trying next URL")
			continue
		}

		raw, err := extractPage(s.extractor, page, target)
		if err != nil {
			lastErr = err
			continue
		}
		if raw.HasValidData {
			return raw, nil
		}
		empty = raw
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return empty, nil
}

// extractPage parses a loaded page. A page on another host without any
// tracking data counts as an unexpected landing.
func extractPage(extractor *extract.Extractor, page *dynamic.LoadedPage, target string) (*models.RawExtraction, error) {
	raw, err := extractor.ExtractHTML(page.HTML)
	if err != nil {
		return nil, NewEngineError(ErrCodeParseFailure, "rendered page could not be parsed", err)
	}
	if !raw.HasValidData && page.URL != "" && !urlutil.SameHost(page.URL, target) {
		return nil, NewEngineError(ErrCodeUpstream, "tracking page redirected elsewhere", ErrUnexpectedPage).
			WithDetail("landed_on", page.URL)
	}
	return raw, nil
}

// pageError maps page loader failures onto engine error codes
func pageError(err error, target string) error {
	switch {
	case errors.Is(err, dynamic.ErrNavigationTimeout), errors.Is(err, context.DeadlineExceeded):
		return NewEngineError(ErrCodeNavigationTimeout, "tracking page timed out", err).
			WithRetry().
			WithDetail("url", target)
	case errors.Is(err, dynamic.ErrLaunchFailed),
		errors.Is(err, dynamic.ErrBrowserNotFound),
		errors.Is(err, dynamic.ErrPoolClosed),
		errors.Is(err, dynamic.ErrBrowserDisconnected):
		return NewEngineError(ErrCodeResourceUnavailable, "browser unavailable", err).WithRetry()
	}
	return NewEngineError(ErrCodeUpstream, fmt.Sprintf("loading %s failed", target), err).WithRetry()
}
