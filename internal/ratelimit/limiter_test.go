package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiter_PerHostBuckets(t *testing.T) {
	dl := NewDomainLimiter(1, 1)

	if !dl.Allow("https://api-eu.dhl.com/track/shipments?trackingNumber=A") {
		t.Fatal("first request should be allowed")
	}
	if dl.Allow("https://api-eu.dhl.com/track/shipments?trackingNumber=B") {
		t.Error("second immediate request to the same host should be throttled")
	}
	if !dl.Allow("https://www.dhl.com/nl-nl/home/tracking.html") {
		t.Error("a different host has its own bucket")
	}
	if dl.Hosts() != 2 {
		t.Errorf("expected 2 hosts, got %d", dl.Hosts())
	}
}

func TestDomainLimiter_WaitHonoursContext(t *testing.T) {
	dl := NewDomainLimiter(0.01, 1)
	url := "https://example.test/track"
	if err := dl.Wait(context.Background(), url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := dl.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}

func TestDomainLimiter_InvalidURL(t *testing.T) {
	dl := NewDomainLimiter(1, 1)
	if err := dl.Wait(context.Background(), "://bad"); err != nil {
		t.Errorf("invalid URLs should pass through, got %v", err)
	}
}
