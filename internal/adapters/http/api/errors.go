package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/clanpulse/internal/adapters/wom"
	service "github.com/okian/clanpulse/internal/app"
	"github.com/okian/clanpulse/internal/domain/activity"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUpstream     = errors.New("upstream unavailable")
	ErrUnavailable  = errors.New("service unavailable")
	ErrTimeout      = errors.New("upstream timeout")
	ErrInternal     = errors.New("internal error")
)

// Error carries the failing operation and the kind that decides the response
// status. Err is the underlying cause and may be nil.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind builds an error of the given kind without a cause.
func NewKind(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind attaches an explicit kind to err.
func WrapKind(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap classifies err by the sentinels of the layers below.
func Wrap(op string, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Op: op, Kind: ae.Kind, Err: err}
	}
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, service.ErrBadUpstreamData):
		return ErrUpstream
	case errors.Is(err, activity.ErrInvalidInput):
		return ErrInvalidInput
	case errors.Is(err, service.ErrInvalidQuery), errors.Is(err, wom.ErrInvalidArgument):
		return ErrBadRequest
	case errors.Is(err, wom.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, wom.ErrRateLimited):
		return ErrRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, wom.ErrUpstream):
		return ErrUpstream
	case errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

type kindStatus struct {
	kind   error
	status int
	code   string
}

var kindTable = []kindStatus{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{ErrNotFound, http.StatusNotFound, "not_found"},
	{ErrRateLimited, http.StatusServiceUnavailable, "rate_limited"},
	{ErrUpstream, http.StatusBadGateway, "upstream_error"},
	{ErrTimeout, http.StatusGatewayTimeout, "upstream_timeout"},
	{ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, k := range kindTable {
		if errors.Is(err, k.kind) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeErr renders err with the status its kind maps to. Rate-limit errors
// carry the upstream Retry-After hint when one was given.
func writeErr(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	var se *wom.StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(se.RetryAfter/time.Second)))
	}
	writeError(w, status, code, err)
}
