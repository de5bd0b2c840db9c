package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Carrier API
	APIBaseURL   string
	APIKey       string
	APIKeyHeader string
	APITimeout   time.Duration
	APIHeaders   []string
	APIRateRPS   float64
	APIRateBurst int

	// Tracking pages
	TrackingURLs      []string
	WaitSelector      string
	WaitTimeout       time.Duration
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	PageRateRPS       float64
	PageRateBurst     int

	// Browser
	BrowserHeadless bool
	ChromePath      string
	Serverless      bool
	UserAgent       string
	IdleTimeout     time.Duration
	LaunchTimeout   time.Duration
	Proxies         []string

	// Caching
	CacheEnabled    bool
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisURL        string

	// Batch runs
	BatchSize    int
	BatchDelay   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	MetricsAddr string
}

// Defaults returns a Config holding only the default values
func Defaults() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		APIBaseURL:        DefaultAPIBaseURL,
		APIKeyHeader:      DefaultAPIKeyHeader,
		APITimeout:        DefaultAPITimeout,
		APIRateRPS:        DefaultAPIRateRPS,
		APIRateBurst:      DefaultAPIRateBurst,
		TrackingURLs:      []string{DefaultTrackingURL, DefaultAlternateURL},
		WaitSelector:      DefaultWaitSelector,
		WaitTimeout:       DefaultWaitTimeout,
		NavigationTimeout: DefaultNavigationTimeout,
		SettleDelay:       DefaultSettleDelay,
		PageRateRPS:       DefaultPageRateRPS,
		PageRateBurst:     DefaultPageRateBurst,
		BrowserHeadless:   DefaultBrowserHeadless,
		IdleTimeout:       DefaultIdleTimeout,
		LaunchTimeout:     DefaultLaunchTimeout,
		CacheEnabled:      true,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxEntries:   DefaultCacheMaxEntries,
		BatchSize:         DefaultBatchSize,
		BatchDelay:        DefaultBatchDelay,
		MaxRetries:        DefaultMaxRetries,
		RetryBackoff:      DefaultRetryBackoff,
	}
}

// Load builds a Config from defaults, a .env file, TRACKTIME_* environment
// variables and finally the flags of cmd, in that order of precedence.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Defaults()

	envFile := ".env"
	if cmd != nil {
		if f := cmd.Flags().Lookup("env-file"); f != nil && f.Value.String() != "" {
			envFile = f.Value.String()
		}
	}
	// a missing .env file is fine
	_ = godotenv.Load(envFile)

	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(s, EnvPrefix)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if err := applyEnv(cfg, k); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := applyFlags(cfg, cmd); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config, k *koanf.Koanf) error {
	var errs []string
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float64) {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(k.String(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v := splitAndTrim(k.String(key)); len(v) > 0 {
			*dst = v
		}
	}

	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("JSON_LOG", &cfg.JSONLog)

	str("API_URL", &cfg.APIBaseURL)
	str("API_KEY", &cfg.APIKey)
	str("API_KEY_HEADER", &cfg.APIKeyHeader)
	dur("API_TIMEOUT", &cfg.APITimeout)
	flt("API_RPS", &cfg.APIRateRPS)
	num("API_BURST", &cfg.APIRateBurst)

	list("TRACKING_URLS", &cfg.TrackingURLs)
	str("WAIT_SELECTOR", &cfg.WaitSelector)
	dur("WAIT_TIMEOUT", &cfg.WaitTimeout)
	dur("NAVIGATION_TIMEOUT", &cfg.NavigationTimeout)
	dur("SETTLE_DELAY", &cfg.SettleDelay)
	flt("PAGE_RPS", &cfg.PageRateRPS)
	num("PAGE_BURST", &cfg.PageRateBurst)

	boolean("HEADLESS", &cfg.BrowserHeadless)
	str("CHROME_PATH", &cfg.ChromePath)
	boolean("SERVERLESS", &cfg.Serverless)
	str("USER_AGENT", &cfg.UserAgent)
	dur("IDLE_TIMEOUT", &cfg.IdleTimeout)
	dur("LAUNCH_TIMEOUT", &cfg.LaunchTimeout)
	list("PROXIES", &cfg.Proxies)

	boolean("CACHE", &cfg.CacheEnabled)
	dur("CACHE_TTL", &cfg.CacheTTL)
	num("CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries)
	str("REDIS_URL", &cfg.RedisURL)

	num("BATCH_SIZE", &cfg.BatchSize)
	dur("BATCH_DELAY", &cfg.BatchDelay)
	num("MAX_RETRIES", &cfg.MaxRetries)
	dur("RETRY_BACKOFF", &cfg.RetryBackoff)

	str("METRICS_ADDR", &cfg.MetricsAddr)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// applyFlags copies explicitly set flags onto cfg
func applyFlags(cfg *Config, cmd *cobra.Command) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	set := func(name string, fn func() error) {
		if err == nil && changed(name) {
			if e := fn(); e != nil {
				err = fmt.Errorf("--%s: %w", name, e)
			}
		}
	}

	set("verbose", func() error {
		if v, e := flags.GetBool("verbose"); e != nil || v {
			cfg.LogLevel = "debug"
			return e
		}
		return nil
	})
	set("quiet", func() error {
		if v, e := flags.GetBool("quiet"); e != nil || v {
			cfg.LogLevel = "error"
			return e
		}
		return nil
	})
	set("json", func() (e error) { cfg.JSONLog, e = flags.GetBool("json"); return })
	set("api-key", func() (e error) { cfg.APIKey, e = flags.GetString("api-key"); return })
	set("api-url", func() (e error) { cfg.APIBaseURL, e = flags.GetString("api-url"); return })
	set("header", func() (e error) { cfg.APIHeaders, e = flags.GetStringArray("header"); return })
	set("tracking-url", func() (e error) { cfg.TrackingURLs, e = flags.GetStringSlice("tracking-url"); return })
	set("timeout", func() (e error) { cfg.NavigationTimeout, e = flags.GetDuration("timeout"); return })
	set("chrome-path", func() (e error) { cfg.ChromePath, e = flags.GetString("chrome-path"); return })
	set("headless", func() (e error) { cfg.BrowserHeadless, e = flags.GetBool("headless"); return })
	set("serverless", func() (e error) { cfg.Serverless, e = flags.GetBool("serverless"); return })
	set("user-agent", func() (e error) { cfg.UserAgent, e = flags.GetString("user-agent"); return })
	set("proxy", func() (e error) { cfg.Proxies, e = flags.GetStringSlice("proxy"); return })
	set("no-cache", func() error {
		v, e := flags.GetBool("no-cache")
		cfg.CacheEnabled = !v
		return e
	})
	set("cache-ttl", func() (e error) { cfg.CacheTTL, e = flags.GetDuration("cache-ttl"); return })
	set("redis-url", func() (e error) { cfg.RedisURL, e = flags.GetString("redis-url"); return })
	set("metrics-addr", func() (e error) { cfg.MetricsAddr, e = flags.GetString("metrics-addr"); return })
	set("batch-size", func() (e error) { cfg.BatchSize, e = flags.GetInt("batch-size"); return })
	set("delay", func() (e error) { cfg.BatchDelay, e = flags.GetDuration("delay"); return })
	set("max-retries", func() (e error) { cfg.MaxRetries, e = flags.GetInt("max-retries"); return })
	set("retry-backoff", func() (e error) { cfg.RetryBackoff, e = flags.GetDuration("retry-backoff"); return })

	return err
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
