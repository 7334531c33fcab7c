package client

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned to every request waiting on a refresh that
// failed or that it stopped waiting for.
var ErrSessionExpired = errors.New("client: session expired, please login again")

// APIError is a 2xx response whose envelope code is not zero.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *HTTPError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("http %d: %s (request %s)", e.Status, e.Message, e.RequestID)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}
