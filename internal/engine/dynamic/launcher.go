// internal/engine/dynamic/launcher.go
package dynamic

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Browser is one running browser process. Tabs are opened from it with
// NewTab; closing it ends every tab.
type Browser struct {
	ID         string
	Proxy      string
	LaunchedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	newTab func(parent context.Context) (context.Context, context.CancelFunc)
}

// NewBrowser wraps a started browser context. cancel must stop the process.
func NewBrowser(ctx context.Context, cancel context.CancelFunc, proxy string) *Browser {
	return &Browser{
		ID:         uuid.NewString(),
		Proxy:      proxy,
		LaunchedAt: time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		newTab: func(parent context.Context) (context.Context, context.CancelFunc) {
			return chromedp.NewContext(parent)
		},
	}
}

// Connected reports whether the browser is still usable
func (b *Browser) Connected() bool {
	return b.ctx.Err() == nil
}

// NewTab opens a fresh tab. The returned cancel closes only that tab.
func (b *Browser) NewTab() (context.Context, context.CancelFunc) {
	return b.newTab(b.ctx)
}

// Close stops the browser
func (b *Browser) Close() {
	b.cancel()
}

// Launcher starts browsers for the pool
type Launcher interface {
	Launch(ctx context.Context, proxy string) (*Browser, error)
}

// LaunchOptions configures ChromeLauncher
type LaunchOptions struct {
	Headless   bool
	UserAgent  string
	ExecPath   string
	Serverless bool
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// ChromeLauncher starts headless Chrome through chromedp
type ChromeLauncher struct {
	opts LaunchOptions
}

// NewChromeLauncher creates a launcher. The serverless profile is selected
// when requested or when running inside AWS Lambda.
func NewChromeLauncher(opts LaunchOptions) *ChromeLauncher {
	opts.Serverless = IsServerless(opts.Serverless)
	return &ChromeLauncher{opts: opts}
}

// IsServerless reports whether the constrained launch profile applies
func IsServerless(requested bool) bool {
	return requested || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// Launch starts a browser and waits until it accepts commands
func (l *ChromeLauncher) Launch(ctx context.Context, proxy string) (*Browser, error) {
	allocOpts, err := l.allocatorOptions(proxy)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	start := time.Now()
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(browserCtx, chromedp.Navigate("about:blank"))
	}()

	select {
	case err := <-started:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("browser launch aborted: %w", ctx.Err())
	}

	log.Info().
		Bool("serverless", l.opts.Serverless).
		Str("proxy", proxy).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Browser launched")

	return NewBrowser(browserCtx, cancel, proxy), nil
}

func (l *ChromeLauncher) allocatorOptions(proxy string) ([]chromedp.ExecAllocatorOption, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
	}

	execPath := l.opts.ExecPath
	if l.opts.Serverless {
		if execPath == "" {
			execPath = os.Getenv("CHROME_PATH")
		}
		if execPath == "" {
			return nil, fmt.Errorf("%w: serverless launch requires an explicit executable path", ErrBrowserNotFound)
		}
		allocOpts = append(allocOpts,
			chromedp.Flag("single-process", true),
			chromedp.Flag("no-zygote", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("disk-cache-size", "0"),
			chromedp.Flag("js-flags", "--max-old-space-size=256"),
		)
	} else if execPath == "" {
		execPath = FindChrome()
	}
	if execPath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(execPath)}, allocOpts...)
	}

	if l.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(l.opts.UserAgent))
	}
	if l.opts.Headless || l.opts.Serverless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy))
	}

	return append(allocOpts, l.opts.ExtraArgs...), nil
}
