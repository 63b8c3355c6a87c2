package service

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/okian/clanpulse/internal/adapters/wom"
	"github.com/okian/clanpulse/internal/domain/activity"
	"github.com/okian/clanpulse/internal/domain/model"
	"github.com/okian/clanpulse/internal/domain/types"
	"github.com/okian/clanpulse/pkg/logger"
)

// Member sort keys.
const (
	SortXP         = "xp"
	SortLastActive = "last_active"
	SortEHP        = "ehp"
	SortEHB        = "ehb"
	SortUsername   = "username"
)

// SortKeys lists the accepted member sort keys.
var SortKeys = []string{SortXP, SortLastActive, SortEHP, SortEHB, SortUsername} //nolint:gochecknoglobals // read-only catalog

// Members returns the member table.
func (s *Service) Members(ctx context.Context, q types.MemberQuery) ([]types.MemberRow, error) {
	states := make(map[model.ActivityState]bool, len(q.States))
	for _, name := range q.States {
		st, ok := model.ParseActivityState(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, name)
		}
		states[st] = true
	}
	if q.Sort == "" {
		q.Sort = SortXP
	}
	if !slices.Contains(SortKeys, q.Sort) {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, q.Sort)
	}

	a, err := s.analyze(ctx, types.ThresholdOverride{})
	if err != nil {
		return nil, err
	}

	rows := make([]activity.MemberResult, 0, len(a.result.Members))
	for _, m := range a.result.Members {
		if len(states) > 0 && !states[m.State] {
			continue
		}
		if len(q.Roles) > 0 && !slices.Contains(q.Roles, m.Member.Role) {
			continue
		}
		rows = append(rows, m)
	}
	sortMembers(rows, q.Sort)

	out := make([]types.MemberRow, 0, len(rows))
	for _, m := range rows {
		out = append(out, memberRow(m))
	}
	return out, nil
}

// sortMembers orders by the key, most notable first, then username.
func sortMembers(rows []activity.MemberResult, by string) {
	less := func(a, b activity.MemberResult) (bool, bool) {
		switch by {
		case SortXP:
			return a.Member.Experience > b.Member.Experience, a.Member.Experience != b.Member.Experience
		case SortEHP:
			return a.Member.EHP > b.Member.EHP, a.Member.EHP != b.Member.EHP
		case SortEHB:
			return a.Member.EHB > b.Member.EHB, a.Member.EHB != b.Member.EHB
		case SortLastActive:
			// Measured members first, most recent first.
			if a.HasDays() != b.HasDays() {
				return a.HasDays(), true
			}
			return a.Days < b.Days, a.Days != b.Days
		}
		return false, false
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if l, decided := less(rows[i], rows[j]); decided {
			return l
		}
		return rows[i].Member.Username < rows[j].Member.Username
	})
}

// Risk returns at most limit intervention candidates. A non-positive limit
// or one above the cap is clamped to the cap.
func (s *Service) Risk(ctx context.Context, limit int) ([]types.RiskEntry, error) {
	if limit <= 0 || limit > s.maxRiskLimit {
		limit = s.maxRiskLimit
	}
	a, err := s.analyze(ctx, types.ThresholdOverride{})
	if err != nil {
		return nil, err
	}
	entries := riskEntries(a.result.Risk)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Gains summarizes one metric over one period.
func (s *Service) Gains(ctx context.Context, metric, period string) (types.GainsReport, error) {
	if err := s.ready(); err != nil {
		return types.GainsReport{}, err
	}
	if metric == "" {
		metric = "overall"
	}
	if period == "" {
		period = s.gainPeriod
	}
	if !wom.ValidMetric(metric) {
		return types.GainsReport{}, fmt.Errorf("%w: metric %q", wom.ErrInvalidArgument, metric)
	}
	if !wom.ValidPeriod(period) {
		return types.GainsReport{}, fmt.Errorf("%w: period %q", wom.ErrInvalidArgument, period)
	}

	rows, err := s.gateway.Gained(ctx, s.groupID, metric, period)
	if err != nil {
		s.logger.Error(ctx, "gains fetch failed", logger.String("metric", metric), logger.Error(err))
		return types.GainsReport{}, fmt.Errorf("gained: %w", err)
	}
	records := make([]model.GainRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, model.GainRecord{
			Username: key(r.Player.Username),
			Metric:   metric,
			Delta:    r.Data.Gained,
			Start:    r.StartDate.Time,
			End:      r.EndDate.Time,
		})
	}
	sum := activity.SummarizeGains(records)

	out := types.GainsReport{
		Metric:        metric,
		Period:        period,
		Total:         sum.Total,
		Average:       sum.Average,
		ActiveGainers: sum.ActiveGainers,
		Records:       sum.Records,
		Gainers:       make([]types.Gainer, 0, len(sum.Gainers)),
	}
	for i, g := range sum.Gainers {
		out.Gainers = append(out.Gainers, types.Gainer{Rank: i + 1, Username: g.Username, Gained: g.Delta})
	}
	return out, nil
}

// Achievements returns the latest achievements, newest first.
func (s *Service) Achievements(ctx context.Context, limit int) ([]types.Achievement, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.achievementsLimit
	}
	rows, err := s.gateway.Achievements(ctx, s.groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}
	out := make([]types.Achievement, 0, len(rows))
	for _, r := range rows {
		name := r.Player.DisplayName
		if name == "" {
			name = r.Player.Username
		}
		out = append(out, types.Achievement{
			Username:  name,
			Name:      r.Name,
			Metric:    r.Metric,
			Threshold: r.Threshold,
			CreatedAt: r.CreatedAt.Time,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Competitions splits competitions into those still running and those that
// have ended. A competition without an end time counts as past.
func (s *Service) Competitions(ctx context.Context) (types.Competitions, error) {
	if err := s.ready(); err != nil {
		return types.Competitions{}, err
	}
	rows, err := s.gateway.Competitions(ctx, s.groupID)
	if err != nil {
		return types.Competitions{}, fmt.Errorf("competitions: %w", err)
	}
	now := s.now()
	out := types.Competitions{Active: []types.Competition{}, Past: []types.Competition{}}
	for _, r := range rows {
		c := types.Competition{
			ID:           r.ID,
			Title:        r.Title,
			Metric:       r.Metric,
			Type:         r.Type,
			StartsAt:     r.StartsAt.Time,
			EndsAt:       r.EndsAt.Time,
			Participants: r.ParticipantCount,
		}
		if !r.EndsAt.IsZero() && r.EndsAt.After(now) {
			out.Active = append(out.Active, c)
		} else {
			out.Past = append(out.Past, c)
		}
	}
	sort.SliceStable(out.Active, func(i, j int) bool { return out.Active[i].EndsAt.Before(out.Active[j].EndsAt) })
	sort.SliceStable(out.Past, func(i, j int) bool { return out.Past[i].EndsAt.After(out.Past[j].EndsAt) })
	return out, nil
}
