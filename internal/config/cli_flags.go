package config

import "github.com/spf13/cobra"

// RegisterFlags registers the persistent flags shared by every command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.Bool("json", false, "Log and print results as JSON")
	pf.String("env-file", "", "Path to a .env file (default .env)")

	pf.String("api-key", "", "Carrier API key (overrides the stored key)")
	pf.String("api-url", "", "Carrier API base URL")
	pf.StringArrayP("header", "H", nil, `Extra carrier API header ("Key: Value"), repeatable`)

	pf.StringSlice("tracking-url", nil, "Tracking page URL templates with %s for the code, primary first")
	pf.Duration("timeout", DefaultNavigationTimeout, "Navigation timeout for tracking pages")
	pf.String("chrome-path", "", "Path to the Chrome executable")
	pf.Bool("headless", DefaultBrowserHeadless, "Run the browser headless")
	pf.Bool("serverless", false, "Use the serverless browser profile")
	pf.String("user-agent", "", "Custom user agent string")
	pf.StringSlice("proxy", nil, "HTTP/SOCKS5 proxies for the browser, rotated on relaunch")

	pf.Bool("no-cache", false, "Do not use the result cache")
	pf.Duration("cache-ttl", DefaultCacheTTL, "How long delivered and not-found results are cached")
	pf.String("redis-url", "", "Share the result cache through Redis (redis://...)")
}

// RegisterBatchFlags registers the flags of the batch command
func RegisterBatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("batch-size", DefaultBatchSize, "Codes acquired concurrently per round")
	f.Duration("delay", DefaultBatchDelay, "Pause between rounds")
	f.Int("max-retries", DefaultMaxRetries, "Attempts per code while the result is an error")
	f.Duration("retry-backoff", DefaultRetryBackoff, "Pause between attempts for one code")
	f.String("metrics-addr", "", "Expose Prometheus metrics on this address during the run (e.g. :9090)")
}
