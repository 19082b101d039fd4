package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks validation failures detected before any network call.
	ErrBadRequest = errors.New("bad request")
	// ErrRejected matches every *RejectedError.
	ErrRejected          = errors.New("gateway rejected request")
	ErrMalformedResponse = errors.New("malformed gateway response")
	// ErrNetwork covers transport failures, timeouts and an open circuit.
	ErrNetwork        = errors.New("gateway unreachable")
	ErrUnknownGateway = errors.New("unknown gateway")
	ErrNotConfigured  = errors.New("gateway not configured")
)

// RejectedError is a non-2xx gateway answer. Body is the raw provider error
// payload, kept for diagnostics.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: status %d: %s", e.StatusCode, e.Body)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}

func Malformed(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, a...))
}
