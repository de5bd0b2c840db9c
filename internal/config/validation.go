package config

import (
	"fmt"

	"github.com/law-makers/tracktime/internal/proxy"
	"github.com/law-makers/tracktime/internal/utils/headers"
	urlutil "github.com/law-makers/tracktime/internal/utils/url"
	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if err := urlutil.ValidateURL(c.APIBaseURL); err != nil {
		return fmt.Errorf("api url: %w", err)
	}
	if c.APITimeout <= 0 || c.NavigationTimeout <= 0 || c.LaunchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	if _, err := headers.ParseHeaders(c.APIHeaders); err != nil {
		return err
	}
	if len(c.TrackingURLs) == 0 {
		return fmt.Errorf("at least one tracking URL template is required")
	}
	for _, tmpl := range c.TrackingURLs {
		if err := urlutil.ValidateTemplate(tmpl); err != nil {
			return err
		}
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d", MaxBatchSize)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1")
	}
	if c.BatchDelay < 0 || c.RetryBackoff < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be > 0")
	}
	if len(c.Proxies) > 0 {
		for _, p := range c.Proxies {
			if _, err := proxy.Parse(p); err != nil {
				return err
			}
		}
	}
	return nil
}
