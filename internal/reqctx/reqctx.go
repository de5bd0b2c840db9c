package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type key int

const requestKey key = 0

// RequestContext identifies one acquisition in logs and sink records
type RequestContext struct {
	RequestID    string
	TrackingCode string
	RunID        string
	StartTime    time.Time
}

// WithRequestContext attaches a fresh request ID for code. An existing run ID
// on ctx is carried over.
func WithRequestContext(ctx context.Context, code string) context.Context {
	rc := &RequestContext{
		RequestID:    uuid.NewString(),
		TrackingCode: code,
		StartTime:    time.Now(),
	}
	if parent, ok := ctx.Value(requestKey).(*RequestContext); ok {
		rc.RunID = parent.RunID
	}
	return context.WithValue(ctx, requestKey, rc)
}

// WithRun marks ctx as belonging to a batch run
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: runID,
		RunID:     runID,
		StartTime: time.Now(),
	})
}

func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// Elapsed returns the time since the request started
func (rc *RequestContext) Elapsed() time.Duration {
	return time.Since(rc.StartTime)
}

// RequestError wraps an error with request context
type RequestError struct {
	RequestID string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError from context
func NewRequestError(ctx context.Context, err error) error {
	rc := GetRequestContext(ctx)
	return &RequestError{
		RequestID: rc.RequestID,
		Err:       err,
	}
}
