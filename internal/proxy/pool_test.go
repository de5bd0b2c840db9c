package proxy

import (
	"errors"
	"testing"
	"time"
)

func next(t *testing.T, p *Pool) string {
	t.Helper()
	got, err := p.GetNext()
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	return got
}

func TestPool_Rotation(t *testing.T) {
	pool := NewPool([]string{"http://p1:8080", "http://p2:8080", "http://p3:8080"}, time.Minute)

	for _, want := range []string{"http://p1:8080", "http://p2:8080", "http://p3:8080", "http://p1:8080"} {
		if got := next(t, pool); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPool_SkipsFailedUntilCooldown(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	pool := NewPool([]string{"p1", "p2", "p3"}, time.Minute)
	pool.now = func() time.Time { return now }

	next(t, pool) // p1
	pool.MarkFailed("p2")

	if got := next(t, pool); got != "p3" {
		t.Errorf("expected p3 (skipping p2), got %s", got)
	}
	if got := next(t, pool); got != "p1" {
		t.Errorf("expected p1, got %s", got)
	}
	if got := next(t, pool); got != "p3" {
		t.Errorf("expected p3 (skipping p2), got %s", got)
	}

	now = now.Add(2 * time.Minute)
	next(t, pool) // p1
	if got := next(t, pool); got != "p2" {
		t.Errorf("expected p2 after cooldown, got %s", got)
	}
}

func TestPool_AllFailedReturnsOldestFailure(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	pool := NewPool([]string{"p1", "p2"}, time.Hour)
	pool.now = func() time.Time { return now }

	pool.MarkFailed("p2")
	now = now.Add(time.Second)
	pool.MarkFailed("p1")

	if got := next(t, pool); got != "p2" {
		t.Errorf("expected p2, which failed first, got %s", got)
	}

	pool.MarkHealthy("p1")
	if got := next(t, pool); got != "p1" {
		t.Errorf("expected healthy p1, got %s", got)
	}
}

func TestPool_Empty(t *testing.T) {
	if _, err := NewPool(nil, 0).GetNext(); !errors.Is(err, ErrNoProxies) {
		t.Errorf("expected ErrNoProxies, got %v", err)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(" http://a:1 , socks5://b:2,,")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got) != 2 || got[0] != "http://a:1" || got[1] != "socks5://b:2" {
		t.Errorf("unexpected proxies %v", got)
	}

	for _, bad := range []string{"ftp://a:1", "not a url"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
