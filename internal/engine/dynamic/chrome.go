// internal/engine/dynamic/chrome.go
package dynamic

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// FindChrome locates a Chrome or Chromium executable. CHROME_PATH wins, then
// the usual install locations for the OS, then PATH. It returns "" to let
// chromedp use its own default.
func FindChrome() string {
	if path := os.Getenv("CHROME_PATH"); path != "" {
		if isExecutable(path) {
			log.Debug().Str("path", path).Msg("Chrome found via CHROME_PATH")
			return path
		}
		log.Warn().Str("path", path).Msg("CHROME_PATH set but not executable")
	}

	for _, path := range chromeCandidates() {
		if isExecutable(path) {
			log.Debug().Str("path", path).Str("os", runtime.GOOS).Msg("Chrome found at standard location")
			return path
		}
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser", "chrome", "msedge"} {
		if path, err := exec.LookPath(name); err == nil {
			log.Debug().Str("path", path).Msg("Chrome found in PATH")
			return path
		}
	}

	log.Warn().Str("os", runtime.GOOS).Msg("Chrome not found, falling back to chromedp default")
	return ""
}

func chromeCandidates() []string {
	home := os.Getenv("HOME")

	switch runtime.GOOS {
	case "darwin":
		c := []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
		if home != "" {
			c = append(c, filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"))
		}
		return c

	case "windows":
		var c []string
		for _, base := range []string{os.Getenv("ProgramFiles"), os.Getenv("ProgramFiles(x86)"), os.Getenv("LocalAppData")} {
			if base == "" {
				continue
			}
			c = append(c,
				filepath.Join(base, "Google\\Chrome\\Application\\chrome.exe"),
				filepath.Join(base, "Chromium\\Application\\chrome.exe"),
				filepath.Join(base, "Microsoft\\Edge\\Application\\msedge.exe"),
			)
		}
		return c

	default:
		c := []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
			// container and lambda layer images
			"/opt/google/chrome/chrome",
			"/opt/chromium/chromium",
			"/opt/chrome/chrome",
		}
		if home != "" {
			c = append(c, filepath.Join(home, ".local/share/flatpak/exports/bin/org.chromium.Chromium"))
		}
		return c
	}
}

// isExecutable checks if a file exists and is executable
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0111 != 0
}

// ChromeVersion returns the version string reported by the executable
func ChromeVersion(chromePath string) string {
	if chromePath == "" {
		return "unknown"
	}
	if runtime.GOOS == "windows" {
		// chrome.exe ignores --version
		return "detected"
	}
	out, err := exec.Command(chromePath, "--version").Output()
	if err != nil {
		return "detected"
	}
	return strings.TrimSpace(string(out))
}
