// internal/cli/doctor.go
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/law-makers/tracktime/internal/auth"
	"github.com/law-makers/tracktime/internal/cache"
	"github.com/law-makers/tracktime/internal/config"
	"github.com/law-makers/tracktime/internal/engine/dynamic"
	"github.com/law-makers/tracktime/internal/ui"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:         "doctor",
	Short:       "Check the browser, API key and cache setup",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipAppAnnotation: "true"},
	RunE:        runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type check struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	checks := []check{chromeCheck(cfg), apiKeyCheck(cfg), cacheCheck(cmd.Context(), cfg)}
	for i, tmpl := range cfg.TrackingURLs {
		name := "Tracking page"
		if i > 0 {
			name = "Alternate page"
		}
		checks = append(checks, check{name: name, ok: true, detail: tmpl})
	}

	failed := printChecks(cmd.OutOrStdout(), checks)
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func chromeCheck(cfg *config.Config) check {
	path := cfg.ChromePath
	if path == "" {
		path = dynamic.FindChrome()
	}
	profile := "local"
	if dynamic.IsServerless(cfg.Serverless) {
		profile = "serverless"
	}
	if path == "" {
		return check{name: "Browser", ok: false, detail: "Chrome not found; set --chrome-path or CHROME_PATH"}
	}
	return check{name: "Browser", ok: true, detail: fmt.Sprintf("%s, %s profile (%s)", dynamic.ChromeVersion(path), profile, path)}
}

func apiKeyCheck(cfg *config.Config) check {
	var store auth.KeyStore
	if cfg.APIKey == "" {
		store, _ = newKeyStore()
	}
	key := auth.ResolveKey(cfg.APIKey, store)
	if key == "" {
		// the page strategies still work without a key
		return check{name: "API key", ok: true, detail: "none, API step will be skipped"}
	}
	return check{name: "API key", ok: true, detail: auth.Mask(key)}
}

func cacheCheck(ctx context.Context, cfg *config.Config) check {
	switch {
	case !cfg.CacheEnabled:
		return check{name: "Cache", ok: true, detail: "disabled"}
	case cfg.RedisURL != "":
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		rc, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return check{name: "Cache", ok: false, detail: err.Error()}
		}
		_ = rc.Close()
		return check{name: "Cache", ok: true, detail: "redis, ttl " + cfg.CacheTTL.String()}
	default:
		return check{name: "Cache", ok: true, detail: fmt.Sprintf("memory, %d entries, ttl %s", cfg.CacheMaxEntries, cfg.CacheTTL)}
	}
}

// printChecks writes one line per check and returns the number that failed
func printChecks(w io.Writer, checks []check) int {
	failed := 0
	fmt.Fprintln(w)
	for _, c := range checks {
		mark := ui.Success("✓")
		if !c.ok {
			mark = ui.Error("✗")
			failed++
		}
		fmt.Fprintf(w, "  %s %-15s %s\n", mark, c.name, ui.Dim(c.detail))
	}
	fmt.Fprintln(w)
	return failed
}
