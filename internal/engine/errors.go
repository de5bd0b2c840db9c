// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"

	"github.com/law-makers/tracktime/internal/reqctx"
)

// Common engine errors
var (
	ErrNoAPIKey       = errors.New("no carrier API key configured")
	ErrEmptyCode      = errors.New("empty tracking code")
	ErrUnexpectedPage = errors.New("landed on unexpected page")
	ErrNoStrategy     = errors.New("no acquisition strategy accepted the result")
)

// ErrorCode represents a specific failure mode of an acquisition
type ErrorCode string

const (
	// ErrCodeNotFound is an authoritative negative from the carrier API. Terminal.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeParseFailure marks data that could not be interpreted. Never fatal.
	ErrCodeParseFailure ErrorCode = "PARSE_FAILURE"
	// ErrCodeNavigationTimeout is raised when a page step exceeds its wait budget.
	ErrCodeNavigationTimeout ErrorCode = "NAVIGATION_TIMEOUT"
	// ErrCodeResourceUnavailable is raised when the browser could not be started.
	ErrCodeResourceUnavailable ErrorCode = "RESOURCE_UNAVAILABLE"
	// ErrCodeUpstream is any non-404 failure of the carrier API.
	ErrCodeUpstream ErrorCode = "UPSTREAM_ERROR"
)

// EngineError wraps errors with additional context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *EngineError) WithRetry() *EngineError {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an EngineError
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsNotFound reports whether err is an authoritative not-found
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRetryable reports whether err was marked retryable
func IsRetryable(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Retry
}

// Describe renders err as an operator-facing message for a failed result
func Describe(err error) string {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return "tracking code not known to carrier"
	case ErrCodeNavigationTimeout:
		return "tracking page did not respond in time"
	case ErrCodeResourceUnavailable:
		return "browser unavailable"
	case ErrCodeUpstream:
		return "carrier API unavailable"
	case ErrCodeParseFailure:
		return "tracking data could not be interpreted"
	}
	if err == nil {
		return ""
	}
	// The request ID is already on the log line and the sink record
	var re *reqctx.RequestError
	if errors.As(err, &re) {
		return re.Err.Error()
	}
	return err.Error()
}
