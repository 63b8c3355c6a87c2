package activity

import (
	"fmt"
	"sort"

	"github.com/okian/clanpulse/internal/domain/scoring"
)

// DefaultRetentionPeriods are the day windows retention is reported for.
var DefaultRetentionPeriods = []int{7, 14, 30, 60, 90} //nolint:gochecknoglobals // read-only defaults

// Config is the validated engine configuration. Build it with NewConfig.
type Config struct {
	thresholds Thresholds
	weights    scoring.Weights
	retention  []int
	tiers      RiskTiers
}

// Option configures the engine.
type Option func(*Config)

// WithThresholds overrides the default day thresholds.
func WithThresholds(t Thresholds) Option {
	return func(c *Config) { c.thresholds = t }
}

// WithWeights overrides the default health weights.
func WithWeights(w scoring.Weights) Option {
	return func(c *Config) { c.weights = w }
}

// WithRetentionPeriods sets the retention windows in days.
func WithRetentionPeriods(periods ...int) Option {
	return func(c *Config) { c.retention = append([]int(nil), periods...) }
}

// WithRiskTiers overrides the default risk tier boundaries.
func WithRiskTiers(t RiskTiers) Option {
	return func(c *Config) { c.tiers = t }
}

// DefaultConfig returns the validated defaults. It panics if they fail
// their own validation, which only a broken default constant can cause.
func DefaultConfig() Config {
	c, err := NewConfig()
	if err != nil {
		panic(fmt.Sprintf("activity: invalid default config: %v", err))
	}
	return c
}

// NewConfig applies options over the defaults and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	c := Config{
		thresholds: DefaultThresholds(),
		weights:    scoring.DefaultWeights(),
		retention:  append([]int(nil), DefaultRetentionPeriods...),
		tiers:      DefaultRiskTiers(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.thresholds.validate(); err != nil {
		return Config{}, err
	}
	if err := c.weights.Validate(); err != nil {
		return Config{}, err
	}
	if err := c.tiers.validate(); err != nil {
		return Config{}, err
	}
	periods, err := normalizePeriods(c.retention)
	if err != nil {
		return Config{}, err
	}
	c.retention = periods
	return c, nil
}

// Thresholds returns the configured thresholds.
func (c Config) Thresholds() Thresholds { return c.thresholds }

// Weights returns the configured health weights.
func (c Config) Weights() scoring.Weights { return c.weights }

// RetentionPeriods returns a copy of the retention windows, ascending.
func (c Config) RetentionPeriods() []int { return append([]int(nil), c.retention...) }

// RiskTiers returns the configured tier boundaries.
func (c Config) RiskTiers() RiskTiers { return c.tiers }

func normalizePeriods(in []int) ([]int, error) {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, p := range in {
		if p <= 0 {
			return nil, invalid("retention_periods", fmt.Sprintf("%d is not positive", p))
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}
