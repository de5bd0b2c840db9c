// internal/engine/dynamic/browser_pool.go
package dynamic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Pool errors
var (
	ErrPoolClosed          = errors.New("browser pool is closed")
	ErrBrowserDisconnected = errors.New("browser disconnected")
	ErrLaunchFailed        = errors.New("browser launch failed")
	ErrBrowserNotFound     = errors.New("chrome browser not found")
)

const (
	// DefaultIdleTimeout is how long an unused browser stays alive
	DefaultIdleTimeout = 60 * time.Second
	// DefaultLaunchTimeout bounds a single browser start
	DefaultLaunchTimeout = 45 * time.Second
)

// ProxySource hands out proxies for browser launches
type ProxySource interface {
	GetNext() (string, error)
	MarkFailed(proxy string)
	MarkHealthy(proxy string)
}

// PoolOptions configures the browser pool
type PoolOptions struct {
	IdleTimeout   time.Duration
	LaunchTimeout time.Duration
	Proxies       ProxySource
	// OnLaunch is called after every successful launch
	OnLaunch func()
	// Clock overrides time.Now
	Clock func() time.Time
}

// BrowserPool owns at most one live browser. The browser is started on first
// use, shared by all callers, and closed again once it sits idle. Every caller
// gets its own tab.
type BrowserPool struct {
	launcher Launcher
	opts     PoolOptions
	group    singleflight.Group

	mu       sync.Mutex
	browser  *Browser
	lastUsed time.Time
	active   int
	launches int
	closed   bool

	stopJanitor chan struct{}
	janitorOnce sync.Once
	wg          sync.WaitGroup
}

// NewBrowserPool creates an empty pool. No browser is started until Acquire.
func NewBrowserPool(launcher Launcher, opts PoolOptions) *BrowserPool {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &BrowserPool{
		launcher:    launcher,
		opts:        opts,
		stopJanitor: make(chan struct{}),
	}
}

// Acquire returns the live browser, starting one if there is none or the
// previous one disconnected. Concurrent callers share a single launch.
func (p *BrowserPool) Acquire(ctx context.Context) (*Browser, error) {
	if b, err := p.current(); b != nil || err != nil {
		return b, err
	}

	v, err, shared := p.group.Do("browser", func() (interface{}, error) {
		if b, err := p.current(); b != nil || err != nil {
			return b, err
		}
		return p.launch(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("Joined in-flight browser launch")
	}
	return v.(*Browser), nil
}

// current returns the live browser, discarding a disconnected one
func (p *BrowserPool) current() (*Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.browser == nil {
		return nil, nil
	}
	if !p.browser.Connected() {
		log.Warn().Str("browser_id", p.browser.ID).Msg("Browser disconnected, relaunching")
		p.browser.Close()
		p.browser = nil
		return nil, nil
	}
	p.lastUsed = p.opts.Clock()
	return p.browser, nil
}

func (p *BrowserPool) launch(ctx context.Context) (*Browser, error) {
	// detached from the first caller, bounded by LaunchTimeout
	launchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.LaunchTimeout)
	defer cancel()

	proxy := ""
	if p.opts.Proxies != nil {
		if next, err := p.opts.Proxies.GetNext(); err == nil {
			proxy = next
		} else {
			log.Warn().Err(err).Msg("No proxy available, launching direct")
		}
	}

	b, err := p.launcher.Launch(launchCtx, proxy)
	if err != nil {
		if proxy != "" {
			p.opts.Proxies.MarkFailed(proxy)
		}
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}
	if proxy != "" {
		p.opts.Proxies.MarkHealthy(proxy)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		b.Close()
		return nil, ErrPoolClosed
	}
	p.browser = b
	p.lastUsed = p.opts.Clock()
	p.launches++
	p.mu.Unlock()

	if p.opts.OnLaunch != nil {
		p.opts.OnLaunch()
	}
	log.Debug().Str("browser_id", b.ID).Msg("Browser ready")
	return b, nil
}

// NewPage opens a fresh tab on the pooled browser. The release function closes
// the tab and must always be called; it is safe to call more than once.
// A browser that turns out to be stale is replaced once.
func (p *BrowserPool) NewPage(ctx context.Context) (context.Context, func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		b, err := p.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}

		tabCtx, closeTab := b.NewTab()
		if !b.Connected() {
			closeTab()
			continue
		}

		p.mu.Lock()
		p.active++
		p.mu.Unlock()

		var once sync.Once
		release := func() {
			once.Do(func() {
				closeTab()
				p.mu.Lock()
				p.active--
				p.lastUsed = p.opts.Clock()
				p.mu.Unlock()
			})
		}
		return tabCtx, release, nil
	}
	return nil, nil, ErrBrowserDisconnected
}

// Cleanup closes the browser when it has no open tabs and has been idle for
// longer than the idle timeout. It reports whether a browser was closed.
func (p *BrowserPool) Cleanup() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil || p.active > 0 {
		return false
	}
	idle := p.opts.Clock().Sub(p.lastUsed)
	if idle < p.opts.IdleTimeout {
		return false
	}

	log.Debug().Str("browser_id", p.browser.ID).Dur("idle", idle).Msg("Closing idle browser")
	p.browser.Close()
	p.browser = nil
	return true
}

// StartJanitor runs Cleanup every interval until Close
func (p *BrowserPool) StartJanitor(interval time.Duration) {
	p.janitorOnce.Do(func() {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p.Cleanup()
				case <-p.stopJanitor:
					return
				}
			}
		}()
	})
}

// Close stops the janitor and the browser. Calling it again is a no-op.
func (p *BrowserPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stopJanitor)
	if p.browser != nil {
		p.browser.Close()
		p.browser = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
	log.Debug().Msg("Browser pool closed")
	return nil
}

// LastUsed returns when the browser was last handed out or a tab released
func (p *BrowserPool) LastUsed() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsed
}

// Active returns the number of open tabs
func (p *BrowserPool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Launches returns how many browsers this pool has started
func (p *BrowserPool) Launches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.launches
}

// Running reports whether a browser is currently held
func (p *BrowserPool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.browser != nil
}
