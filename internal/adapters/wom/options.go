package wom

import (
	"net/http"
	"time"

	"github.com/okian/clanpulse/pkg/logger"
)

// Defaults.
const (
	DefaultBaseURL     = "https://api.wiseoldman.net/v2"
	DefaultUserAgent   = "clanpulse/1.0"
	DefaultTimeout     = 30 * time.Second
	AnonymousRateLimit = 20  // requests per minute without an API key
	KeyedRateLimit     = 100 // requests per minute with an API key
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the x-api-key header and raises the default rate limit.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the transport client. Its Timeout is kept unless
// WithTimeout is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit sets requests per minute. Non-positive values select the
// default for the configured key.
func WithRateLimit(perMinute float64) Option {
	return func(c *Client) { c.perMinute = perMinute }
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
