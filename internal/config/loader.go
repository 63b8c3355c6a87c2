package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/clanpulse/internal/adapters/wom"
)

const (
	envPrefix  = "CLANPULSE_"
	envConfig  = envPrefix + "CONFIG"
	listKeySep = ","
)

// Keys whose env values are comma-separated lists.
var listKeys = map[string]bool{ //nolint:gochecknoglobals // read-only lookup
	"gain_metrics":      true,
	"snapshot_skills":   true,
	"retention_periods": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if CLANPULSE_CONFIG is set
//  3. env (prefix CLANPULSE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadErr(path, err)
		}
	}

	// CLANPULSE_GROUP_ID -> group_id; list keys split on commas.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "config" {
			return "", nil
		}
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadErr("env", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadErr("unmarshal", err)
	}
	applyListDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, listKeySep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyListDefaults(c *Config) {
	if c.GainMetrics == nil {
		c.GainMetrics = append([]string(nil), DefaultGainMetrics...)
	}
	if c.SnapshotSkills == nil {
		c.SnapshotSkills = append([]string(nil), DefaultSnapshotSkills...)
	}
	if len(c.RetentionPeriods) == 0 {
		c.RetentionPeriods = append([]int(nil), DefaultRetentionPeriods...)
	}
}

// Validate checks the fields the service cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalidf("addr must not be empty")
	case c.GroupID <= 0:
		return invalidf("group_id must be positive, got %d", c.GroupID)
	case !wom.ValidPeriod(c.GainPeriod):
		return invalidf("gain_period %q must be one of %s", c.GainPeriod, strings.Join(wom.Periods, ", "))
	case c.FetchConcurrency <= 0:
		return invalidf("fetch_concurrency must be positive, got %d", c.FetchConcurrency)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalidf("log_format %q must be text or json", c.LogFormat)
	case c.MaxRiskLimit <= 0:
		return invalidf("max_risk_limit must be positive, got %d", c.MaxRiskLimit)
	case c.RequestTimeoutMS <= 0:
		return invalidf("request_timeout_ms must be positive, got %d", c.RequestTimeoutMS)
	}
	if len(c.GainMetrics) == 0 {
		return invalidf("gain_metrics must not be empty")
	}
	for _, m := range c.GainMetrics {
		if !wom.ValidMetric(m) {
			return invalidf("gain_metrics: unknown metric %q", m)
		}
	}
	for _, s := range c.SnapshotSkills {
		if !wom.ValidMetric(s) {
			return invalidf("snapshot_skills: unknown metric %q", s)
		}
	}
	return nil
}
