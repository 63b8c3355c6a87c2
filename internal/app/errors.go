package service

import "errors"

var (
	// ErrNoGateway is returned by Start when no upstream gateway was given.
	ErrNoGateway = errors.New("service: no gateway configured")
	// ErrNotStarted is returned by queries issued before Start.
	ErrNotStarted = errors.New("service: not started")
	// ErrInvalidQuery rejects unknown filter or sort values.
	ErrInvalidQuery = errors.New("service: invalid query")
	// ErrBadUpstreamData marks a roster the engine rejected, such as one with
	// activity dated after the analysis time.
	ErrBadUpstreamData = errors.New("service: bad upstream data")
)
