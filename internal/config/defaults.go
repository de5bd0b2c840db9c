package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultAPIBaseURL   = "https://api-eu.dhl.com"
	DefaultAPIKeyHeader = "DHL-API-Key"
	DefaultAPITimeout   = 15 * time.Second
	DefaultAPIRateRPS   = 2.0
	DefaultAPIRateBurst = 4

	DefaultTrackingURL       = "https://www.dhl.com/nl-nl/home/tracking/tracking-parcel.html?submit=1&tracking-id=%s"
	DefaultAlternateURL      = "https://my.dhlecommerce.nl/home/tracktrace/%s"
	DefaultWaitSelector      = `[data-testid="tracking-timeline"], .c-tracking-result--checkpoint-list`
	DefaultWaitTimeout       = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSettleDelay       = 1500 * time.Millisecond
	DefaultPageRateRPS       = 1.0
	DefaultPageRateBurst     = 2

	DefaultBrowserHeadless = true
	DefaultIdleTimeout     = 60 * time.Second
	DefaultLaunchTimeout   = 45 * time.Second
	DefaultProxyCooldown   = 5 * time.Minute

	DefaultCacheTTL        = 6 * time.Hour
	DefaultCacheMaxEntries = 10000

	DefaultBatchSize    = 3
	DefaultBatchDelay   = 2 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 500 * time.Millisecond
	MaxBatchSize        = 50

	// BroadMinEvents is the event count the broad page strategy must exceed
	BroadMinEvents = 50

	EnvPrefix = "TRACKTIME_"
)
