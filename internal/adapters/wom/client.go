// Package wom is a client for the WiseOldMan v2 REST API.
package wom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/clanpulse/pkg/logger"
	"github.com/okian/clanpulse/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	maxErrorBody = 4 << 10
	maxProbeKeys = 5
)

// Client talks to WOM. It is safe for concurrent use; all requests share
// one rate limiter.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	timeout   time.Duration
	perMinute float64
	http      *http.Client
	limiter   *rate.Limiter
	log       logger.Logger
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.perMinute <= 0 {
		c.perMinute = AnonymousRateLimit
		if c.apiKey != "" {
			c.perMinute = KeyedRateLimit
		}
	}
	burst := int(c.perMinute / 10)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(c.perMinute/60), burst)
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout == 0 && c.http.Timeout == 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// RatePerMinute returns the effective request budget.
func (c *Client) RatePerMinute() float64 { return c.perMinute }

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// GroupDetails fetches group metadata and memberships.
func (c *Client) GroupDetails(ctx context.Context, groupID int) (GroupDetails, error) {
	var out GroupDetails
	err := c.get(ctx, "group", groupPath(groupID, ""), nil, &out)
	return out, err
}

// Hiscores fetches every member ranked by metric.
func (c *Client) Hiscores(ctx context.Context, groupID int, metric string) ([]HiscoreEntry, error) {
	if !ValidMetric(metric) {
		return nil, fmt.Errorf("%w: metric %q", ErrInvalidArgument, metric)
	}
	var out []HiscoreEntry
	err := c.get(ctx, "hiscores", groupPath(groupID, "/hiscores"), url.Values{"metric": {metric}}, &out)
	return out, err
}

// Gained fetches per-member gains of metric over period.
func (c *Client) Gained(ctx context.Context, groupID int, metric, period string) ([]GainedEntry, error) {
	if !ValidMetric(metric) {
		return nil, fmt.Errorf("%w: metric %q", ErrInvalidArgument, metric)
	}
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("%w: period %q", ErrInvalidArgument, period)
	}
	var out []GainedEntry
	q := url.Values{"metric": {metric}, "period": {period}}
	err := c.get(ctx, "gained", groupPath(groupID, "/gained"), q, &out)
	return out, err
}

// Achievements fetches the most recent achievements.
func (c *Client) Achievements(ctx context.Context, groupID, limit int) ([]Achievement, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out []Achievement
	err := c.get(ctx, "achievements", groupPath(groupID, "/achievements"), q, &out)
	return out, err
}

// Competitions fetches past and current competitions.
func (c *Client) Competitions(ctx context.Context, groupID int) ([]Competition, error) {
	var out []Competition
	err := c.get(ctx, "competitions", groupPath(groupID, "/competitions"), nil, &out)
	return out, err
}

// Probe issues a raw GET and describes the response shape. Non-2xx codes
// are reported in the result, not as an error.
func (c *Client) Probe(ctx context.Context, path string, q url.Values) (ProbeResult, error) {
	start := time.Now()
	resp, u, err := c.do(ctx, "probe", path, q)
	if err != nil {
		return ProbeResult{URL: u}, err
	}
	defer resp.Body.Close()

	res := ProbeResult{URL: u, StatusCode: resp.StatusCode, Latency: time.Since(start)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return res, nil
	}
	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return res, fmt.Errorf("wom probe %s: decode: %w", path, err)
	}
	res.Items, res.Keys = shape(raw)
	return res, nil
}

func shape(raw any) (int, []string) {
	var obj map[string]any
	items := -1
	switch v := raw.(type) {
	case []any:
		items = len(v)
		if len(v) > 0 {
			obj, _ = v[0].(map[string]any)
		}
	case map[string]any:
		obj = v
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxProbeKeys {
		keys = keys[:maxProbeKeys]
	}
	return items, keys
}

func groupPath(id int, suffix string) string {
	return "/groups/" + strconv.Itoa(id) + suffix
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	resp, _, err := c.do(ctx, endpoint, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := statusError(endpoint, resp)
		c.log.Warn(ctx, "upstream request failed",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
			logger.String("message", serr.Message))
		return serr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RecordErrorByComponent("wom", "decode")
		return fmt.Errorf("wom %s: decode: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, path string, q url.Values) (*http.Response, string, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, u, fmt.Errorf("wom %s: rate limiter: %w", endpoint, err)
	}
	if waited := time.Since(waitStart); waited > time.Millisecond {
		metrics.RecordRateLimitWait(float64(waited.Milliseconds()))
	}

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	req, err := c.newRequest(reqCtx, u)
	if err != nil {
		cancel()
		return nil, u, err
	}
	resp, err := c.send(ctx, endpoint, req)
	if err != nil {
		cancel()
		return nil, u, err
	}
	// The timeout covers the body read, so it is released on Close.
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, u, nil
}

func (c *Client) newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("wom: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, endpoint string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpstreamRequest(endpoint, "error", ms)
		metrics.RecordErrorByComponent("wom", "transport")
		c.log.Error(ctx, "upstream request error", logger.String("endpoint", endpoint), logger.Error(err))
		return nil, fmt.Errorf("wom %s: %w", endpoint, err)
	}
	metrics.RecordUpstreamRequest(endpoint, strconv.Itoa(resp.StatusCode), ms)
	c.log.Debug(ctx, "upstream request",
		logger.String("endpoint", endpoint),
		logger.Int("status", resp.StatusCode),
		logger.Float64("latency_ms", ms))
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func statusError(endpoint string, resp *http.Response) *StatusError {
	e := &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
		e.Message = msg.Message
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}
