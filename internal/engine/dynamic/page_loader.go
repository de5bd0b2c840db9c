// internal/engine/dynamic/page_loader.go
package dynamic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ErrNavigationTimeout is returned when the page did not load within its budget
var ErrNavigationTimeout = errors.New("navigation timed out")

// Identity is the client identity presented to the tracking site
type Identity struct {
	UserAgent      string
	AcceptLanguage string
	Width          int64
	Height         int64
}

// DefaultIdentity looks like a Dutch desktop browser
var DefaultIdentity = Identity{
	UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	AcceptLanguage: "nl-NL,nl;q=0.9,en;q=0.8",
	Width:          1366,
	Height:         900,
}

// LoadRequest describes one page visit
type LoadRequest struct {
	URL string
	// NavigationTimeout bounds the navigation itself
	NavigationTimeout time.Duration
	// WaitSelector is awaited for at most WaitTimeout; the load continues
	// either way.
	WaitSelector  string
	WaitTimeout   time.Duration
	HandleConsent bool
	ExpandDetails bool
	// SettleDelay lets animations triggered by expansion finish
	SettleDelay time.Duration
}

// LoadedPage is the rendered result of a visit
type LoadedPage struct {
	URL         string
	HTML        string
	SelectorHit bool
	Consented   bool
	Expanded    int
}

// PageLoader renders pages
type PageLoader interface {
	Load(ctx context.Context, req LoadRequest) (*LoadedPage, error)
}

// ChromePageLoader renders pages in tabs of the pooled browser
type ChromePageLoader struct {
	pool     *BrowserPool
	identity Identity
}

// NewPageLoader creates a loader over pool
func NewPageLoader(pool *BrowserPool, identity Identity) *ChromePageLoader {
	if identity.UserAgent == "" {
		identity.UserAgent = DefaultIdentity.UserAgent
	}
	if identity.AcceptLanguage == "" {
		identity.AcceptLanguage = DefaultIdentity.AcceptLanguage
	}
	if identity.Width == 0 || identity.Height == 0 {
		identity.Width, identity.Height = DefaultIdentity.Width, DefaultIdentity.Height
	}
	return &ChromePageLoader{pool: pool, identity: identity}
}

const consentScript = `(() => {
  for (const id of ['onetrust-accept-btn-handler', 'accept-recommended-btn-handler']) {
    const el = document.getElementById(id);
    if (el) { el.click(); return true; }
  }
  const words = ['alle cookies accepteren', 'accepteren', 'akkoord', 'accept all', 'accept'];
  for (const b of document.querySelectorAll('button, a[role="button"]')) {
    const t = (b.innerText || '').trim().toLowerCase();
    if (words.some(w => t.startsWith(w))) { b.click(); return true; }
  }
  return false;
})()`

const expandScript = `(() => {
  let n = 0;
  for (const el of document.querySelectorAll('[aria-expanded="false"]')) { el.click(); n++; }
  const words = ['toon meer', 'meer details', 'alle details', 'show more', 'show all', 'more details'];
  for (const b of document.querySelectorAll('button, a')) {
    const t = (b.innerText || '').trim().toLowerCase();
    if (words.some(w => t.startsWith(w))) { b.click(); n++; }
  }
  return n;
})()`

// Load opens a fresh tab, visits req.URL and returns the rendered HTML. The
// tab is closed before Load returns; the browser stays in the pool.
func (l *ChromePageLoader) Load(ctx context.Context, req LoadRequest) (*LoadedPage, error) {
	start := time.Now()

	tabCtx, release, err := l.pool.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// the tab hangs off the browser, so tie it to the caller as well
	tabCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	navTimeout := req.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(tabCtx, navTimeout)
	defer navCancel()

	err = chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": l.identity.AcceptLanguage}),
		emulation.SetUserAgentOverride(l.identity.UserAgent).WithAcceptLanguage(l.identity.AcceptLanguage),
		emulation.SetDeviceMetricsOverride(l.identity.Width, l.identity.Height, 1, false),
		chromedp.Navigate(req.URL),
	)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", ErrNavigationTimeout, navTimeout, req.URL)
		}
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	page := &LoadedPage{}

	if req.HandleConsent {
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(consentScript, &page.Consented)); err != nil {
			log.Debug().Err(err).Msg("Consent handling failed")
		} else if page.Consented {
			log.Debug().Msg("Consent banner accepted")
			// the banner closes with an animation and sometimes a reload
			_ = chromedp.Run(tabCtx, chromedp.Sleep(500*time.Millisecond))
		}
	}

	if req.WaitSelector != "" {
		page.SelectorHit = waitVisible(tabCtx, req.WaitSelector, req.WaitTimeout)
	} else if req.WaitTimeout > 0 {
		_ = chromedp.Run(tabCtx, chromedp.Sleep(req.WaitTimeout))
	}

	if req.ExpandDetails {
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(expandScript, &page.Expanded)); err != nil {
			log.Debug().Err(err).Msg("Expanding details failed")
		}
	}
	if req.SettleDelay > 0 {
		_ = chromedp.Run(tabCtx, chromedp.Sleep(req.SettleDelay))
	}

	captureCtx, captureCancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer captureCancel()
	if err := chromedp.Run(captureCtx,
		chromedp.Location(&page.URL),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("capture %s: %w", req.URL, err)
	}

	log.Debug().
		Str("url", page.URL).
		Bool("selector_hit", page.SelectorHit).
		Int("expanded", page.Expanded).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Page loaded")

	return page, nil
}

// waitVisible waits up to timeout for selector and reports whether it appeared
func waitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		log.Debug().Str("selector", selector).Dur("timeout", timeout).Msg("Selector not visible, continuing")
		return false
	}
	return true
}
