// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/law-makers/tracktime/internal/auth"
	"github.com/law-makers/tracktime/internal/cache"
	"github.com/law-makers/tracktime/internal/config"
	"github.com/law-makers/tracktime/internal/engine"
	"github.com/law-makers/tracktime/internal/engine/api"
	"github.com/law-makers/tracktime/internal/engine/batch"
	"github.com/law-makers/tracktime/internal/engine/dynamic"
	"github.com/law-makers/tracktime/internal/engine/extract"
	"github.com/law-makers/tracktime/internal/engine/resolve"
	"github.com/law-makers/tracktime/internal/obs"
	"github.com/law-makers/tracktime/internal/proxy"
	"github.com/law-makers/tracktime/internal/ratelimit"
	"github.com/law-makers/tracktime/internal/retry"
	"github.com/law-makers/tracktime/internal/sink"
	"github.com/law-makers/tracktime/internal/utils/headers"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once per command and closed when the command returns.
// No browser is started until a page strategy needs one.
type Application struct {
	Config       *config.Config
	Logger       *zerolog.Logger
	Metrics      *obs.Metrics
	Cache        cache.Cache
	Sink         sink.Sink
	API          *api.Client
	BrowserPool  *dynamic.BrowserPool
	Orchestrator *engine.Orchestrator
	startTime    time.Time
}

// SetupLogging configures the global zerolog logger from cfg. Console runs
// stay quiet at the default level; -v or an explicit level opens them up.
func SetupLogging(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if level == zerolog.InfoLevel && !cfg.JSONLog {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stderr
	if !cfg.JSONLog {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Resolves the carrier API key (flag, environment, keyring)
//   - Opens the result cache (memory, Redis or none)
//   - Prepares the browser pool and page loader
//   - Assembles the ordered acquisition strategies
//
// If any step fails, an error is returned and no resources are held.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := SetupLogging(cfg)
	metrics := obs.NewMetrics()

	apiClient, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	resultCache, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pool := newBrowserPool(cfg, metrics)
	loader := dynamic.NewPageLoader(pool, dynamic.Identity{UserAgent: cfg.UserAgent})

	pageOpts := engine.PageOptions{
		URLTemplates:      cfg.TrackingURLs,
		WaitSelector:      cfg.WaitSelector,
		WaitTimeout:       cfg.WaitTimeout,
		NavigationTimeout: cfg.NavigationTimeout,
		SettleDelay:       cfg.SettleDelay,
		Limiter:           ratelimit.NewDomainLimiter(cfg.PageRateRPS, cfg.PageRateBurst),
	}

	candidates := []engine.Candidate{
		{Strategy: engine.NewAPIStrategy(apiClient)},
		{
			Strategy:  engine.NewBroadStrategy(loader, BroadExtractor(), pageOpts),
			MinEvents: config.BroadMinEvents,
		},
		{
			Strategy: engine.NewLiveStrategy(loader, LiveExtractor(), pageOpts),
			Final:    true,
		},
	}

	outcomes := sink.Multi{sink.LogSink{}, sink.MetricsSink{Metrics: metrics}}
	orchestrator := engine.NewOrchestrator(candidates, engine.OrchestratorOptions{
		Resolver: resolve.New(),
		Cache:    resultCache,
		CacheTTL: cfg.CacheTTL,
		Sink:     outcomes,
	})

	logger.Debug().
		Bool("api_key", apiClient.HasKey()).
		Int("tracking_urls", len(cfg.TrackingURLs)).
		Bool("cache", cfg.CacheEnabled).
		Msg("Application initialized")

	return &Application{
		Config:       cfg,
		Logger:       &logger,
		Metrics:      metrics,
		Cache:        resultCache,
		Sink:         outcomes,
		API:          apiClient,
		BrowserPool:  pool,
		Orchestrator: orchestrator,
		startTime:    time.Now(),
	}, nil
}

// BroadExtractor reads inline script state before falling back to the DOM tiers
func BroadExtractor() *extract.Extractor {
	return extract.NewExtractor(append([]extract.Strategy{extract.NewEmbeddedState()}, domTiers()...)...)
}

// LiveExtractor reads the rendered DOM only
func LiveExtractor() *extract.Extractor {
	return extract.NewExtractor(domTiers()...)
}

func domTiers() []extract.Strategy {
	return []extract.Strategy{
		extract.NewExactSelectors(nil, nil),
		extract.NewAttributePatterns(nil),
		extract.NewKeywordScan(),
	}
}

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	extra, err := headers.ParseHeaders(cfg.APIHeaders)
	if err != nil {
		return nil, err
	}

	var store auth.KeyStore
	if cfg.APIKey == "" {
		if store, err = auth.NewKeyStore(); err != nil {
			log.Debug().Err(err).Msg("Key store unavailable")
		}
	}

	retryCfg := retry.DefaultConfig()
	return api.New(api.Options{
		BaseURL:   cfg.APIBaseURL,
		APIKey:    auth.ResolveKey(cfg.APIKey, store),
		KeyHeader: cfg.APIKeyHeader,
		Timeout:   cfg.APITimeout,
		Headers:   extra,
		Limiter:   ratelimit.NewDomainLimiter(cfg.APIRateRPS, cfg.APIRateBurst),
		Retry:     &retryCfg,
	}), nil
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch {
	case !cfg.CacheEnabled:
		return cache.Nop{}, nil
	case cfg.RedisURL != "":
		rc, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	default:
		return cache.NewMemoryCache(cfg.CacheMaxEntries), nil
	}
}

func newBrowserPool(cfg *config.Config, metrics *obs.Metrics) *dynamic.BrowserPool {
	execPath := cfg.ChromePath
	if execPath == "" {
		execPath = dynamic.FindChrome()
	}
	launcher := dynamic.NewChromeLauncher(dynamic.LaunchOptions{
		Headless:   cfg.BrowserHeadless,
		UserAgent:  cfg.UserAgent,
		ExecPath:   execPath,
		Serverless: cfg.Serverless,
	})

	opts := dynamic.PoolOptions{
		IdleTimeout:   cfg.IdleTimeout,
		LaunchTimeout: cfg.LaunchTimeout,
		OnLaunch:      metrics.BrowserLaunches.Inc,
	}
	if len(cfg.Proxies) > 0 {
		opts.Proxies = proxy.NewPool(cfg.Proxies, config.DefaultProxyCooldown)
	}

	pool := dynamic.NewBrowserPool(launcher, opts)
	interval := cfg.IdleTimeout / 2
	if interval <= 0 {
		interval = dynamic.DefaultIdleTimeout / 2
	}
	pool.StartJanitor(interval)
	return pool
}

// Track acquires a single code
func (a *Application) Track(ctx context.Context, code string) models.TrackingResult {
	return a.Orchestrator.Acquire(ctx, code)
}

// NewRunner creates a batch runner over the orchestrator
func (a *Application) NewRunner(opts models.BatchOptions, progress batch.ProgressFunc) *batch.Runner {
	options := []batch.Option{batch.WithMetrics(a.Metrics)}
	if progress != nil {
		options = append(options, batch.WithProgress(progress))
	}
	return batch.NewRunner(a.Orchestrator, opts, options...)
}

// BatchOptions returns the batch settings from the configuration
func (a *Application) BatchOptions() models.BatchOptions {
	return models.BatchOptions{
		BatchSize:           a.Config.BatchSize,
		DelayBetweenBatches: a.Config.BatchDelay,
		MaxRetries:          a.Config.MaxRetries,
		RetryBackoff:        a.Config.RetryBackoff,
	}
}

// Close gracefully shuts down the application and all its resources.
//
// It performs the following cleanup steps in order:
//   - Closes the browser pool (interrupting any open tabs)
//   - Closes the cache
//
// Errors are logged and do not stop the remaining steps.
func (a *Application) Close(_ context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	launches := 0
	if a.BrowserPool != nil {
		launches = a.BrowserPool.Launches()
		if err := a.BrowserPool.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
	}

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing cache")
		}
	}

	a.Logger.Debug().
		Dur("uptime", a.Uptime()).
		Int("browser_launches", launches).
		Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
