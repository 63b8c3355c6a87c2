// Package config defines service configuration and its loading.
//
// Conventions:
// - Keys are flat snake_case, shared by the YAML file and CLANPULSE_ env vars.
// - New(ctx) returns the defaults; Load(ctx) layers file and env on top.
// - Engine values are validated by the engine constructors, see EngineConfig.
package config

import (
	"context"
	"time"

	"github.com/okian/clanpulse/internal/domain/activity"
	"github.com/okian/clanpulse/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// GroupID is the WOM group analysed.
	GroupID int `koanf:"group_id"`

	WOMBaseURL         string  `koanf:"wom_base_url"`
	WOMAPIKey          string  `koanf:"wom_api_key"`
	UserAgent          string  `koanf:"user_agent"`
	RequestTimeoutMS   int     `koanf:"request_timeout_ms"`
	RateLimitPerMinute float64 `koanf:"rate_limit_per_minute"` // 0 picks 20, or 100 with a key

	// Cache lifetimes in seconds.
	CacheTTLMembersS int `koanf:"cache_ttl_members_s"`
	CacheTTLGainsS   int `koanf:"cache_ttl_gains_s"`
	CacheTTLDetailsS int `koanf:"cache_ttl_details_s"`

	// Day thresholds; each bound is inclusive.
	ActiveDays   int `koanf:"active_days"`
	AtRiskDays   int `koanf:"at_risk_days"`
	InactiveDays int `koanf:"inactive_days"`

	// Health weights per state.
	WeightActive   float64 `koanf:"weight_active"`
	WeightAtRisk   float64 `koanf:"weight_at_risk"`
	WeightInactive float64 `koanf:"weight_inactive"`
	WeightChurned  float64 `koanf:"weight_churned"`

	// GainPeriod is the lookback of the gained calls: day, week, month, year.
	GainPeriod string `koanf:"gain_period"`
	// GainMetrics are fetched on every refresh as activity evidence.
	GainMetrics []string `koanf:"gain_metrics"`
	// SnapshotSkills are fetched into each member's skill snapshot.
	SnapshotSkills []string `koanf:"snapshot_skills"`
	// FetchConcurrency bounds parallel upstream calls per refresh.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	RetentionPeriods []int `koanf:"retention_periods"`
	RiskHighDays     int   `koanf:"risk_high_days"`
	RiskMediumDays   int   `koanf:"risk_medium_days"`

	// MaxRiskLimit caps GET /api/risk?limit.
	MaxRiskLimit int `koanf:"max_risk_limit"`
	// AchievementsLimit is the default feed length.
	AchievementsLimit int `koanf:"achievements_limit"`
}

// Default list values, applied when a list key is absent.
//
//nolint:gochecknoglobals // read-only defaults
var (
	DefaultGainMetrics      = []string{"overall"}
	DefaultSnapshotSkills   = []string{}
	DefaultRetentionPeriods = []int{7, 14, 30, 60, 90}
)

// New returns the defaults. Context is accepted first to follow the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		GroupID:            11625,
		WOMBaseURL:         "https://api.wiseoldman.net/v2",
		UserAgent:          "clanpulse/1.0",
		RequestTimeoutMS:   30_000,
		RateLimitPerMinute: 0,
		CacheTTLMembersS:   300,
		CacheTTLGainsS:     600,
		CacheTTLDetailsS:   900,
		ActiveDays:         activity.DefaultActiveDays,
		AtRiskDays:         activity.DefaultAtRiskDays,
		InactiveDays:       activity.DefaultInactiveDays,
		WeightActive:       scoring.DefaultActiveWeight,
		WeightAtRisk:       scoring.DefaultAtRiskWeight,
		WeightInactive:     scoring.DefaultInactiveWeight,
		WeightChurned:      scoring.DefaultChurnedWeight,
		GainPeriod:         "week",
		FetchConcurrency:   4,
		RiskHighDays:       activity.DefaultRiskHighDays,
		RiskMediumDays:     activity.DefaultRiskMediumDays,
		MaxRiskLimit:       100,
		AchievementsLimit:  50,
	}
}

// RequestTimeout returns the per-request upstream timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// MembersTTL returns the hiscores cache lifetime.
func (c *Config) MembersTTL() time.Duration { return seconds(c.CacheTTLMembersS) }

// GainsTTL returns the gained cache lifetime.
func (c *Config) GainsTTL() time.Duration { return seconds(c.CacheTTLGainsS) }

// DetailsTTL returns the group details cache lifetime.
func (c *Config) DetailsTTL() time.Duration { return seconds(c.CacheTTLDetailsS) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// EngineConfig builds the validated engine configuration.
func (c *Config) EngineConfig() (activity.Config, error) {
	th, err := activity.NewThresholds(c.ActiveDays, c.AtRiskDays, c.InactiveDays)
	if err != nil {
		return activity.Config{}, err
	}
	w, err := scoring.NewWeights(c.WeightActive, c.WeightAtRisk, c.WeightInactive, c.WeightChurned)
	if err != nil {
		return activity.Config{}, err
	}
	tiers, err := activity.NewRiskTiers(c.RiskMediumDays, c.RiskHighDays)
	if err != nil {
		return activity.Config{}, err
	}
	return activity.NewConfig(
		activity.WithThresholds(th),
		activity.WithWeights(w),
		activity.WithRiskTiers(tiers),
		activity.WithRetentionPeriods(c.RetentionPeriods...),
	)
}
