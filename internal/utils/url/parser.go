package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks for an absolute http(s) URL with a host
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ValidateTemplate checks a tracking page template. It must hold exactly one
// %s where the tracking code goes and be a valid URL once filled in.
func ValidateTemplate(tmpl string) error {
	if n := strings.Count(tmpl, "%s"); n != 1 {
		return fmt.Errorf("tracking URL template %q must contain exactly one %%s, found %d", tmpl, n)
	}
	return ValidateURL(strings.Replace(tmpl, "%s", "CODE", 1))
}

// TrackingURL fills the tracking code into tmpl, escaping it for the position
// it lands in.
func TrackingURL(tmpl, code string) (string, error) {
	if err := ValidateTemplate(tmpl); err != nil {
		return "", err
	}
	idx := strings.Index(tmpl, "%s")
	escaped := url.PathEscape(code)
	if q := strings.Index(tmpl, "?"); q >= 0 && q < idx {
		escaped = url.QueryEscape(code)
	}
	return tmpl[:idx] + escaped + tmpl[idx+2:], nil
}

// SameHost reports whether two URLs point at the same host
func SameHost(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}
