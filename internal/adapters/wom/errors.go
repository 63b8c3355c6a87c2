package wom

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrUpstream wraps every non-2xx response.
	ErrUpstream = errors.New("wom: upstream error")
	// ErrNotFound is a 404, usually an unknown group id.
	ErrNotFound = errors.New("wom: not found")
	// ErrRateLimited is a 429.
	ErrRateLimited = errors.New("wom: rate limited")
	// ErrInvalidArgument rejects a request before it is sent.
	ErrInvalidArgument = errors.New("wom: invalid argument")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wom %s: %d %s: %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("wom %s: %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap yields ErrUpstream plus ErrNotFound or ErrRateLimited when they apply.
func (e *StatusError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return []error{ErrNotFound, ErrUpstream}
	case http.StatusTooManyRequests:
		return []error{ErrRateLimited, ErrUpstream}
	default:
		return []error{ErrUpstream}
	}
}
