package market

import (
	"errors"
	"fmt"
)

// Fetch failure kinds. Every error returned by Client wraps exactly one
// of these (or is a StatusError/APIError), so callers can classify
// failures with errors.Is / errors.As without touching transport types.
var (
	// ErrNetwork marks connection-level failures (DNS, refused, reset).
	ErrNetwork = errors.New("network unreachable")

	// ErrTimeout marks requests that exceeded the per-request deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrMalformed marks response bodies that could not be decoded.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is returned for non-success HTTP status codes, preserving
// the code for callers.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// APIError is an in-band error reported by the API inside an otherwise
// well-formed response envelope.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s", e.Message)
}
