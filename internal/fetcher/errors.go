package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind represents the category of failure that occurred during a fetch
type ErrorKind string

const (
	// KindTimeout indicates the request exceeded its per-source time box
	KindTimeout ErrorKind = "timeout"
	// KindUnreachable indicates a connectivity failure (connection refused,
	// DNS, non-2xx status code)
	KindUnreachable ErrorKind = "unreachable"
	// KindBadPayload indicates the response arrived but could not be parsed
	KindBadPayload ErrorKind = "bad_payload"
)

// ErrAllSourcesFailed is the category-level failure: every source for a
// category failed in the same cycle. The cache layer degrades this to the
// last known value when one exists; it never reaches a consumer raw.
var ErrAllSourcesFailed = errors.New("all sources failed")

// FetchError represents a structured error from a single source's fetch
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Kind:    KindTimeout,
		Message: "request timed out",
		Cause:   cause,
	}
}

// NewUnreachableError creates a connectivity error
func NewUnreachableError(cause error) *FetchError {
	return &FetchError{
		Kind:    KindUnreachable,
		Message: "upstream unreachable",
		Cause:   cause,
	}
}

// NewStatusError creates a connectivity error for a non-2xx response
func NewStatusError(statusCode int) *FetchError {
	return &FetchError{
		Kind:       KindUnreachable,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
	}
}

// NewBadPayloadError creates a malformed-response error
func NewBadPayloadError(cause error) *FetchError {
	return &FetchError{
		Kind:    KindBadPayload,
		Message: "unparsable payload",
		Cause:   cause,
	}
}

// Classify maps a transport-level error to the appropriate FetchError.
// Context deadline expiry and net timeouts become KindTimeout; everything
// else is a connectivity failure.
func Classify(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}

	return NewUnreachableError(err)
}
