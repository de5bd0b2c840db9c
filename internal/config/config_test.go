package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	RegisterFlags(cmd)
	RegisterBatchFlags(cmd)
	// point at a file that does not exist so a developer's .env never leaks in
	args = append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newCmd(t))
	require.NoError(t, err)

	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultAPIKeyHeader, cfg.APIKeyHeader)
	require.Len(t, cfg.TrackingURLs, 2)
	require.Equal(t, DefaultBatchSize, cfg.BatchSize)
	require.True(t, cfg.CacheEnabled)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("TRACKTIME_API_KEY", "from-env")
	t.Setenv("TRACKTIME_BATCH_SIZE", "5")
	t.Setenv("TRACKTIME_BATCH_DELAY", "250ms")
	t.Setenv("TRACKTIME_TRACKING_URLS", "https://a.example.nl/%s, https://b.example.nl/?c=%s")

	cfg, err := Load(newCmd(t))
	require.NoError(t, err)

	require.Equal(t, "from-env", cfg.APIKey)
	require.Equal(t, 5, cfg.BatchSize)
	require.Equal(t, 250*time.Millisecond, cfg.BatchDelay)
	require.Equal(t, []string{"https://a.example.nl/%s", "https://b.example.nl/?c=%s"}, cfg.TrackingURLs)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TRACKTIME_API_KEY", "from-env")
	t.Setenv("TRACKTIME_BATCH_SIZE", "5")

	cfg, err := Load(newCmd(t, "--api-key", "from-flag", "--batch-size", "7", "--verbose", "--no-cache", "-H", "X-A: 1", "-H", "X-B: 2"))
	require.NoError(t, err)

	require.Equal(t, "from-flag", cfg.APIKey)
	require.Equal(t, 7, cfg.BatchSize)
	require.Equal(t, "debug", cfg.LogLevel)
	require.False(t, cfg.CacheEnabled)
	require.Equal(t, []string{"X-A: 1", "X-B: 2"}, cfg.APIHeaders)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TRACKTIME_MAX_RETRIES=4\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TRACKTIME_MAX_RETRIES") })

	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", path}))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.MaxRetries)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TRACKTIME_BATCH_DELAY", "soon")
	_, err := Load(newCmd(t))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"template without placeholder", func(c *Config) { c.TrackingURLs = []string{"https://x.example.nl/track"} }},
		{"no templates", func(c *Config) { c.TrackingURLs = nil }},
		{"batch size too large", func(c *Config) { c.BatchSize = MaxBatchSize + 1 }},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"negative delay", func(c *Config) { c.BatchDelay = -time.Second }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad api url", func(c *Config) { c.APIBaseURL = "ftp://api" }},
		{"bad proxy", func(c *Config) { c.Proxies = []string{"gopher://p:1"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			require.Error(t, validate(cfg))
		})
	}

	require.NoError(t, validate(Defaults()))
}
