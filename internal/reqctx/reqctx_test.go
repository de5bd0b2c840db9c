package reqctx

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithRequestContext_CarriesRun(t *testing.T) {
	ctx := WithRun(context.Background(), "run-1")
	ctx = WithRequestContext(ctx, "JVGL0612")

	rc := GetRequestContext(ctx)
	if rc.RunID != "run-1" {
		t.Errorf("expected run id to carry over, got %q", rc.RunID)
	}
	if rc.TrackingCode != "JVGL0612" {
		t.Errorf("unexpected code %q", rc.TrackingCode)
	}
	if rc.RequestID == "" || rc.RequestID == "run-1" {
		t.Errorf("expected a fresh request id, got %q", rc.RequestID)
	}
}

func TestGetRequestContext_Missing(t *testing.T) {
	if got := GetRequestContext(context.Background()).RequestID; got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestRequestError(t *testing.T) {
	base := errors.New("boom")
	ctx := WithRequestContext(context.Background(), "X")
	err := NewRequestError(ctx, base)
	if !errors.Is(err, base) {
		t.Error("expected wrapped error")
	}
	if !strings.Contains(err.Error(), GetRequestContext(ctx).RequestID) {
		t.Errorf("expected request id in %q", err.Error())
	}
}
