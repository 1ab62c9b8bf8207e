package backend

import (
	"errors"
	"fmt"
)

// Domain errors for the backend package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, backend.ErrUnexpectedStatus) {
//	    // the backend answered, but not with 2xx
//	}
var (
	// ErrUnexpectedStatus is matched by every *StatusError.
	ErrUnexpectedStatus = errors.New("backend: unexpected status")

	// ErrRequestFailed is returned when no response was received.
	ErrRequestFailed = errors.New("backend: request failed")
)

// StatusError carries a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("backend: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Is reports whether target is ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
