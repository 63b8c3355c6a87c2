package wom

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/clanpulse/internal/adapters/cache"
	"github.com/okian/clanpulse/pkg/metrics"
)

// Default cache lifetimes.
const (
	DefaultMembersTTL = 5 * time.Minute
	DefaultGainsTTL   = 10 * time.Minute
	DefaultDetailsTTL = 15 * time.Minute
)

// Source is the set of calls Cached decorates. *Client implements it.
type Source interface {
	GroupDetails(ctx context.Context, groupID int) (GroupDetails, error)
	Hiscores(ctx context.Context, groupID int, metric string) ([]HiscoreEntry, error)
	Gained(ctx context.Context, groupID int, metric, period string) ([]GainedEntry, error)
	Achievements(ctx context.Context, groupID, limit int) ([]Achievement, error)
	Competitions(ctx context.Context, groupID int) ([]Competition, error)
}

// Cached is a read-through caching Source. Returned slices are shared
// between callers and must not be modified.
type Cached struct {
	src          Source
	details      *cache.Cache[GroupDetails]
	hiscores     *cache.Cache[[]HiscoreEntry]
	gains        *cache.Cache[[]GainedEntry]
	achievements *cache.Cache[[]Achievement]
	competitions *cache.Cache[[]Competition]
}

type cachedConfig struct {
	members, gains, details time.Duration
	clock                   func() time.Time
}

// CachedOption configures Cached.
type CachedOption func(*cachedConfig)

// WithMembersTTL sets the lifetime of hiscores and achievements.
func WithMembersTTL(d time.Duration) CachedOption {
	return func(c *cachedConfig) { c.members = d }
}

// WithGainsTTL sets the lifetime of gained results.
func WithGainsTTL(d time.Duration) CachedOption {
	return func(c *cachedConfig) { c.gains = d }
}

// WithDetailsTTL sets the lifetime of group details and competitions.
func WithDetailsTTL(d time.Duration) CachedOption {
	return func(c *cachedConfig) { c.details = d }
}

// WithCacheClock replaces time.Now in every cache.
func WithCacheClock(now func() time.Time) CachedOption {
	return func(c *cachedConfig) { c.clock = now }
}

// NewCached wraps src.
func NewCached(src Source, opts ...CachedOption) *Cached {
	cfg := cachedConfig{members: DefaultMembersTTL, gains: DefaultGainsTTL, details: DefaultDetailsTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	with := func(ttl time.Duration) []cache.Option {
		return []cache.Option{cache.WithTTL(ttl), cache.WithClock(cfg.clock)}
	}
	return &Cached{
		src:          src,
		details:      cache.New[GroupDetails]("details", with(cfg.details)...),
		hiscores:     cache.New[[]HiscoreEntry]("members", with(cfg.members)...),
		gains:        cache.New[[]GainedEntry]("gains", with(cfg.gains)...),
		achievements: cache.New[[]Achievement]("achievements", with(cfg.members)...),
		competitions: cache.New[[]Competition]("competitions", with(cfg.details)...),
	}
}

// GroupDetails implements Source.
func (c *Cached) GroupDetails(ctx context.Context, groupID int) (GroupDetails, error) {
	return c.details.Get(ctx, fmt.Sprint(groupID), func(ctx context.Context) (GroupDetails, error) {
		return c.src.GroupDetails(ctx, groupID)
	})
}

// Hiscores implements Source.
func (c *Cached) Hiscores(ctx context.Context, groupID int, metric string) ([]HiscoreEntry, error) {
	return c.hiscores.Get(ctx, fmt.Sprintf("%d/%s", groupID, metric), func(ctx context.Context) ([]HiscoreEntry, error) {
		return c.src.Hiscores(ctx, groupID, metric)
	})
}

// Gained implements Source.
func (c *Cached) Gained(ctx context.Context, groupID int, metric, period string) ([]GainedEntry, error) {
	return c.gains.Get(ctx, fmt.Sprintf("%d/%s/%s", groupID, metric, period), func(ctx context.Context) ([]GainedEntry, error) {
		return c.src.Gained(ctx, groupID, metric, period)
	})
}

// Achievements implements Source.
func (c *Cached) Achievements(ctx context.Context, groupID, limit int) ([]Achievement, error) {
	return c.achievements.Get(ctx, fmt.Sprintf("%d/%d", groupID, limit), func(ctx context.Context) ([]Achievement, error) {
		return c.src.Achievements(ctx, groupID, limit)
	})
}

// Competitions implements Source.
func (c *Cached) Competitions(ctx context.Context, groupID int) ([]Competition, error) {
	return c.competitions.Get(ctx, fmt.Sprint(groupID), func(ctx context.Context) ([]Competition, error) {
		return c.src.Competitions(ctx, groupID)
	})
}

// Invalidate drops every cached response and returns how many were removed.
func (c *Cached) Invalidate() int {
	n := c.details.Purge() + c.hiscores.Purge() + c.gains.Purge() +
		c.achievements.Purge() + c.competitions.Purge()
	metrics.RecordCacheInvalidation()
	return n
}

// Entries returns the entry count per cache.
func (c *Cached) Entries() map[string]int {
	return map[string]int{
		c.details.Name():      c.details.Len(),
		c.hiscores.Name():     c.hiscores.Len(),
		c.gains.Name():        c.gains.Len(),
		c.achievements.Name(): c.achievements.Len(),
		c.competitions.Name(): c.competitions.Len(),
	}
}
