package service

import (
	"fmt"

	"github.com/okian/clanpulse/internal/config"
)

// ConfigOptions translates loaded configuration into service options.
func ConfigOptions(cfg *config.Config) ([]Option, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return []Option{
		WithGroupID(cfg.GroupID),
		WithEngineConfig(engineCfg),
		WithGainPeriod(cfg.GainPeriod),
		WithGainMetrics(cfg.GainMetrics...),
		WithSnapshotSkills(cfg.SnapshotSkills...),
		WithFetchConcurrency(cfg.FetchConcurrency),
		WithAchievementsLimit(cfg.AchievementsLimit),
		WithMaxRiskLimit(cfg.MaxRiskLimit),
		WithRateLimit(cfg.RateLimitPerMinute),
	}, nil
}
