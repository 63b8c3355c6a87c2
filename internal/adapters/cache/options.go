package cache

import "time"

// Defaults.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 256
)

type options struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the cache. If maxEntries <= 0 the cache is unbounded.
func WithMaxEntries(maxEntries int) Option {
	return func(o *options) {
		o.maxEntries = maxEntries
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
