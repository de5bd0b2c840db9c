package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/law-makers/tracktime/internal/retry"
)

const shipmentJSON = `{
  "shipments": [{
    "id": "JVGL0612",
    "status": {"timestamp": "2025-01-17T10:00:00+01:00", "statusCode": "delivered", "description": "Delivered"},
    "events": [
      {"timestamp": "2025-01-15T14:30:00+01:00", "description": "Zending is ontvangen", "location": {"address": {"addressLocality": "Utrecht"}}},
      {"timestamp": "2025-01-17T10:00:00+01:00", "description": "Bezorgd", "location": "Amsterdam"},
      {"timestamp": "17-01-2025 11:00", "status": "bezorgd bij buren"}
    ]
  }]
}`

func fastRetry() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return &cfg
}

func TestTrack_ParsesShipment(t *testing.T) {
	var gotKey, gotCode, gotExtra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("DHL-API-Key")
		gotExtra = r.Header.Get("X-Client")
		gotCode = r.URL.Query().Get("trackingNumber")
		if r.URL.Path != "/track/shipments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(shipmentJSON))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "secret", Headers: map[string]string{"X-Client": "tracktime"}, Retry: fastRetry()})
	raw, err := c.Track(context.Background(), "JVGL0612")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if gotKey != "secret" || gotCode != "JVGL0612" || gotExtra != "tracktime" {
		t.Errorf("request mismatch: key=%q code=%q extra=%q", gotKey, gotCode, gotExtra)
	}
	if !raw.HasValidData {
		t.Fatal("expected valid data")
	}
	if raw.StatusText != "delivered" {
		t.Errorf("expected status code to win, got %q", raw.StatusText)
	}
	if len(raw.Timeline) != 3 {
		t.Fatalf("expected 3 events, got %d", len(raw.Timeline))
	}

	first := raw.Timeline[0]
	if first.At == nil || first.At.UTC().Hour() != 13 {
		t.Errorf("expected absolute instant 13:30 UTC, got %+v", first.At)
	}
	if first.Location != "Utrecht" {
		t.Errorf("expected nested locality, got %q", first.Location)
	}
	if raw.Timeline[1].Location != "Amsterdam" {
		t.Errorf("expected string location, got %q", raw.Timeline[1].Location)
	}
	third := raw.Timeline[2]
	if third.At != nil || third.When != "17-01-2025 11:00" {
		t.Errorf("expected free-text timestamp kept for the normalizer, got %+v", third)
	}
	if third.Description != "bezorgd bij buren" {
		t.Errorf("expected status as fallback description, got %q", third.Description)
	}
}

func TestTrack_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"title":"No shipment with given tracking number found."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Retry: fastRetry()})
	_, err := c.Track(context.Background(), "UNKNOWN1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected a single call, got %d", n)
	}
}

func TestTrack_RetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(shipmentJSON))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "k", Retry: fastRetry()})
	raw, err := c.Track(context.Background(), "JVGL0612")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(raw.Timeline) != 3 {
		t.Errorf("expected 3 events, got %d", len(raw.Timeline))
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 calls, got %d", n)
	}
}

func TestTrack_ClientErrorFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "bad", Retry: fastRetry()})
	_, err := c.Track(context.Background(), "JVGL0612")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a non-404 error, got %v", err)
	}
	if retry.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("expected status 401 to be carried, got %d", retry.StatusCode(err))
	}
}

func TestTrack_EmptyShipments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"shipments":[]}`))
	}))
	defer srv.Close()

	raw, err := New(Options{BaseURL: srv.URL, APIKey: "k"}).Track(context.Background(), "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.HasValidData {
		t.Error("empty shipments should not count as valid data")
	}
}

func TestHasKey(t *testing.T) {
	if New(Options{APIKey: "  "}).HasKey() {
		t.Error("blank key should not count")
	}
	if !New(Options{APIKey: "abc"}).HasKey() {
		t.Error("expected key")
	}
}

func TestSnippet_KeepsRunesWhole(t *testing.T) {
	body := []byte(strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50))
	got := snippet(body)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Errorf("expected 200 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "é") {
		t.Errorf("expected the multi-byte rune to survive, got suffix %q", got[len(got)-4:])
	}
	if got := snippet([]byte("  short  ")); got != "short" {
		t.Errorf("expected trimmed body, got %q", got)
	}
}
