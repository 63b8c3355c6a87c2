package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/clanpulse/internal/domain/activity"
	"github.com/okian/clanpulse/internal/domain/model"
	"github.com/okian/clanpulse/internal/domain/types"
	"github.com/okian/clanpulse/pkg/logger"
	"github.com/okian/clanpulse/pkg/metrics"
)

// engineFor returns the configured engine, or one with overridden thresholds.
func (s *Service) engineFor(o types.ThresholdOverride) (*activity.Engine, error) {
	if o.Empty() {
		return s.engine, nil
	}
	base := s.engine.Config()
	th := base.Thresholds()
	pick := func(v *int, def int) int {
		if v != nil {
			return *v
		}
		return def
	}
	override, err := activity.NewThresholds(
		pick(o.Active, th.Active()),
		pick(o.AtRisk, th.AtRisk()),
		pick(o.Inactive, th.Inactive()),
	)
	if err != nil {
		return nil, err
	}
	cfg, err := activity.NewConfig(
		activity.WithThresholds(override),
		activity.WithWeights(base.Weights()),
		activity.WithRetentionPeriods(base.RetentionPeriods()...),
		activity.WithRiskTiers(base.RiskTiers()),
	)
	if err != nil {
		return nil, err
	}
	return activity.NewEngine(cfg), nil
}

type analysis struct {
	result    activity.Result
	groupName string
}

// analyze runs one full pass: fetch, map, classify.
func (s *Service) analyze(ctx context.Context, o types.ThresholdOverride) (analysis, error) {
	if err := s.ready(); err != nil {
		return analysis{}, err
	}
	engine, err := s.engineFor(o)
	if err != nil {
		return analysis{}, err
	}

	start := time.Now()
	snap, err := s.fetch(ctx)
	if err != nil {
		metrics.RecordRefresh("error", msSince(start))
		metrics.RecordErrorByComponent("service", "fetch")
		s.recordAnalysis(time.Time{}, nil, err)
		s.logger.Error(ctx, "roster fetch failed", logger.Int("group_id", s.groupID), logger.Error(err))
		return analysis{}, fmt.Errorf("fetch roster: %w", err)
	}

	roster := buildRoster(ctx, s.logger, snap, s.now)
	res, err := engine.Run(roster)
	if err != nil {
		metrics.RecordRefresh("error", msSince(start))
		metrics.RecordAnalysisError()
		s.recordAnalysis(time.Time{}, nil, err)
		s.logger.Error(ctx, "analysis failed", logger.Error(err))
		return analysis{}, fmt.Errorf("analyze roster: %w: %w", ErrBadUpstreamData, err)
	}

	metrics.RecordRefresh("ok", msSince(start))
	metrics.UpdateHealthScore(res.Health)
	if err := metrics.UpdateMembersByState(stateCounts(res.Counts)); err != nil {
		s.logger.Warn(ctx, "state gauge update failed", logger.Error(err))
	}
	metrics.UpdateRiskCandidates(len(res.Risk))
	s.recordAnalysis(roster.Now, res.Health, nil)

	fields := []logger.Field{
		logger.Int("members", len(res.Members)),
		logger.Int("risk", len(res.Risk)),
		logger.Float64("duration_ms", msSince(start)),
	}
	if res.Health != nil {
		fields = append(fields, logger.Float64("health", *res.Health))
	}
	s.logger.Debug(ctx, "analysis complete", fields...)

	return analysis{result: res, groupName: snap.details.Name}, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func stateCounts(c map[model.ActivityState]int) map[string]int {
	out := make(map[string]int, len(c))
	for s, n := range c {
		out[s.String()] = n
	}
	return out
}

// Report returns the full dashboard payload.
func (s *Service) Report(ctx context.Context, o types.ThresholdOverride) (types.Report, error) {
	a, err := s.analyze(ctx, o)
	if err != nil {
		return types.Report{}, err
	}
	return toReport(s.groupID, a), nil
}

func toReport(groupID int, a analysis) types.Report {
	res := a.result
	in := res.Insights
	rep := types.Report{
		GroupID:     groupID,
		GroupName:   a.groupName,
		GeneratedAt: res.Now,
		HealthScore: res.Health,
		Thresholds: types.Thresholds{
			Active:   res.Thresholds.Active(),
			AtRisk:   res.Thresholds.AtRisk(),
			Inactive: res.Thresholds.Inactive(),
		},
		Weights:     res.Weights.Map(),
		Total:       in.Total,
		Tracked:     in.Tracked,
		Untracked:   in.Untracked,
		Counts:      stateCounts(res.Counts),
		Percentages: make(map[string]float64, len(in.Percentages)),
		Totals:      types.Totals{Experience: in.Totals.Experience, EHP: in.Totals.EHP, EHB: in.Totals.EHB},
		Averages:    types.Averages{Experience: in.Averages.Experience, EHP: in.Averages.EHP, EHB: in.Averages.EHB},
		Retention:   make([]types.Retention, 0, len(in.Retention)),
		Buckets:     make([]types.Bucket, 0, len(in.Buckets)),
		Roles:       make([]types.RoleCount, 0, len(in.Roles)),
		Risk:        riskEntries(res.Risk),
		Members:     make([]types.MemberRow, 0, len(res.Members)),
	}
	for st, p := range in.Percentages {
		rep.Percentages[st.String()] = p
	}
	for _, r := range in.Retention {
		rep.Retention = append(rep.Retention, types.Retention{Days: r.Days, Percent: r.Percent})
	}
	for _, b := range in.Buckets {
		tb := types.Bucket{Label: b.Label, Min: b.Min, Count: b.Count, Percent: b.Percent}
		if b.Max >= 0 {
			hi := b.Max
			tb.Max = &hi
		}
		rep.Buckets = append(rep.Buckets, tb)
	}
	for _, r := range in.Roles {
		rep.Roles = append(rep.Roles, types.RoleCount{Role: r.Role, Count: r.Count})
	}
	for _, m := range res.Members {
		rep.Members = append(rep.Members, memberRow(m))
	}
	return rep
}

func riskEntries(in []activity.RiskEntry) []types.RiskEntry {
	out := make([]types.RiskEntry, 0, len(in))
	for i, r := range in {
		out = append(out, types.RiskEntry{
			Rank:         i + 1,
			Username:     r.Username,
			DisplayName:  r.DisplayName,
			Role:         r.Role,
			Status:       r.State.String(),
			DaysInactive: r.Days,
			Experience:   r.Experience,
			LastActive:   timePtr(r.LastActive),
			Priority:     string(r.Tier),
		})
	}
	return out
}

func memberRow(m activity.MemberResult) types.MemberRow {
	row := types.MemberRow{
		Username:    m.Member.Username,
		DisplayName: m.Member.Name(),
		Role:        m.Member.Role,
		Status:      m.State.String(),
		Evidence:    m.Evidence.String(),
		JoinedAt:    timePtr(m.Member.JoinedAt),
		Experience:  m.Member.Experience,
		EHP:         m.Member.EHP,
		EHB:         m.Member.EHB,
		AccountType: m.Member.AccountType,
		Build:       m.Member.Build,
		Tracked:     m.Member.Tracked,
	}
	if m.HasDays() {
		d := m.Days
		row.DaysInactive = &d
	}
	if m.Evidence == activity.EvidenceGain {
		row.LastActive = timePtr(m.Since)
	}
	return row
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
