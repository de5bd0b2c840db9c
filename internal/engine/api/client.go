// internal/engine/api/client.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/law-makers/tracktime/internal/engine/extract"
	"github.com/law-makers/tracktime/internal/ratelimit"
	"github.com/law-makers/tracktime/internal/retry"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL   = "https://api-eu.dhl.com"
	DefaultKeyHeader = "DHL-API-Key"
	DefaultTimeout   = 15 * time.Second
)

// ErrNotFound is returned when the carrier answers 404 for a code
var ErrNotFound = errors.New("shipment not found")

// Options configures a Client
type Options struct {
	BaseURL    string
	APIKey     string
	KeyHeader  string
	Timeout    time.Duration
	Headers    map[string]string
	Limiter    ratelimit.RateLimiter
	Retry      *retry.Config
	HTTPClient *http.Client
}

// Client talks to the structured carrier tracking API
type Client struct {
	base      string
	key       string
	keyHeader string
	headers   map[string]string
	limiter   ratelimit.RateLimiter
	retry     retry.Config
	http      *http.Client
}

// New creates a Client, filling unset options with defaults
func New(opts Options) *Client {
	c := &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		key:       strings.TrimSpace(opts.APIKey),
		keyHeader: opts.KeyHeader,
		headers:   opts.Headers,
		limiter:   opts.Limiter,
		http:      opts.HTTPClient,
	}
	if c.base == "" {
		c.base = DefaultBaseURL
	}
	if c.keyHeader == "" {
		c.keyHeader = DefaultKeyHeader
	}
	if c.limiter == nil {
		c.limiter = ratelimit.Unlimited{}
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	} else {
		c.retry = retry.DefaultConfig()
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c
}

// HasKey reports whether an API key is configured
func (c *Client) HasKey() bool {
	return c.key != ""
}

type trackResponse struct {
	Shipments []shipment `json:"shipments"`
}

type shipment struct {
	ID     string      `json:"id"`
	Status *eventJSON  `json:"status"`
	Events []eventJSON `json:"events"`
}

type eventJSON struct {
	Timestamp   string      `json:"timestamp"`
	StatusCode  string      `json:"statusCode"`
	Status      string      `json:"status"`
	Description string      `json:"description"`
	Location    interface{} `json:"location"`
}

// Track fetches one tracking code. A 404 yields an error wrapping ErrNotFound.
// A 200 without shipments yields an extraction without valid data.
func (c *Client) Track(ctx context.Context, code string) (*models.RawExtraction, error) {
	endpoint := c.base + "/track/shipments?trackingNumber=" + url.QueryEscape(code)

	var body []byte
	err := retry.WithRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			return retry.Permanent(err)
		}
		b, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		if retry.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", code, ErrNotFound)
		}
		return nil, err
	}

	var resp trackResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}
	if len(resp.Shipments) == 0 {
		return models.NewRawExtraction("", nil), nil
	}

	s := resp.Shipments[0]
	raw := models.NewRawExtraction(statusText(s.Status), convertEvents(s.Events))

	log.Debug().
		Str("tracking_code", code).
		Str("status_text", raw.StatusText).
		Int("events", len(raw.Timeline)).
		Msg("Carrier API response parsed")

	return raw, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.keyHeader, c.key)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("carrier API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := retry.NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode), snippet(body))
		if resp.StatusCode == http.StatusNotFound {
			return nil, retry.Permanent(httpErr)
		}
		return nil, httpErr
	}
	return body, nil
}

func statusText(st *eventJSON) string {
	if st == nil {
		return ""
	}
	for _, s := range []string{st.StatusCode, st.Status, st.Description} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func convertEvents(in []eventJSON) []models.RawEvent {
	out := make([]models.RawEvent, 0, len(in))
	for _, e := range in {
		desc := strings.TrimSpace(e.Description)
		if desc == "" {
			desc = strings.TrimSpace(e.Status)
		}
		if desc == "" {
			desc = strings.TrimSpace(e.StatusCode)
		}
		ev := models.RawEvent{
			Description: desc,
			Location:    extract.LocationName(e.Location),
		}
		// timestamps without a zone go through the normalizer
		if t, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			ev.At = &t
		} else {
			ev.When = e.Timestamp
		}
		out = append(out, ev)
	}
	return out
}

// snippet returns at most the first 200 runes of a response body
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200])
	}
	return s
}
