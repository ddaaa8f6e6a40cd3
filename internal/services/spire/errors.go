package spire

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrInvalidFilter is returned before any request is sent when a caller
// supplies a filter that is not a JSON object.
var ErrInvalidFilter = errors.New("invalid filter json format")

// TransportError wraps network level failures: DNS, refused connections,
// timeouts, unreadable bodies.
type TransportError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request hit its deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// APIError is an envelope failure: an error payload or a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// IsTransport reports whether err came from the network rather than the ERP.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
