package activity

import (
	"sort"

	"github.com/okian/clanpulse/internal/domain/model"
)

const percent = 100

// Totals sums tracked members' progress.
type Totals struct {
	Experience int64
	EHP        float64
	EHB        float64
}

// Averages are Totals divided by the tracked member count.
type Averages struct {
	Experience float64
	EHP        float64
	EHB        float64
}

// RetentionRate is the share of the roster active within Days.
type RetentionRate struct {
	Days    int
	Percent float64
}

// Bucket is one bar of the inactivity histogram. Max < 0 means open-ended.
type Bucket struct {
	Label   string
	Min     int
	Max     int
	Count   int
	Percent float64
}

// RoleCount is the number of members holding a clan role.
type RoleCount struct {
	Role  string
	Count int
}

// Insights are the descriptive statistics of one pass.
type Insights struct {
	Total       int
	Tracked     int
	Untracked   int
	Percentages map[model.ActivityState]float64
	Totals      Totals
	Averages    Averages
	Retention   []RetentionRate
	Buckets     []Bucket
	Roles       []RoleCount
}

var bucketBounds = []struct { //nolint:gochecknoglobals // fixed histogram layout
	label    string
	min, max int
}{
	{"0-7d", 0, 7},
	{"8-14d", 8, 14},
	{"15-30d", 15, 30},
	{"31-60d", 31, 60},
	{"61-90d", 61, 90},
	{"91-180d", 91, 180},
	{"181-365d", 181, 365},
	{"1y+", 366, -1},
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * percent
}

func percentages(counts map[model.ActivityState]int, total int) map[model.ActivityState]float64 {
	out := make(map[model.ActivityState]float64, len(model.AllStates))
	for _, s := range model.AllStates {
		out[s] = share(counts[s], total)
	}
	return out
}

func totals(members []MemberResult) (Totals, Averages, int) {
	var t Totals
	tracked := 0
	for _, m := range members {
		if !m.Member.Tracked {
			continue
		}
		tracked++
		t.Experience += m.Member.Experience
		t.EHP += m.Member.EHP
		t.EHB += m.Member.EHB
	}
	if tracked == 0 {
		return t, Averages{}, 0
	}
	n := float64(tracked)
	return t, Averages{
		Experience: float64(t.Experience) / n,
		EHP:        t.EHP / n,
		EHB:        t.EHB / n,
	}, tracked
}

// Retention reports, per period, the share of the whole roster whose
// observed days fall within [0, period]. Members without a measurement count
// toward the denominator only.
func Retention(members []MemberResult, periods []int) []RetentionRate {
	out := make([]RetentionRate, 0, len(periods))
	for _, p := range periods {
		n := 0
		for _, m := range members {
			if m.HasDays() && m.Days >= 0 && m.Days <= p {
				n++
			}
		}
		out = append(out, RetentionRate{Days: p, Percent: share(n, len(members))})
	}
	return out
}

// Buckets builds the inactivity histogram over members with a measurement.
// Percentages are of that measured population.
func Buckets(members []MemberResult) []Bucket {
	out := make([]Bucket, len(bucketBounds))
	measured := 0
	for i, b := range bucketBounds {
		out[i] = Bucket{Label: b.label, Min: b.min, Max: b.max}
	}
	for _, m := range members {
		if !m.HasDays() {
			continue
		}
		measured++
		for i, b := range bucketBounds {
			if m.Days >= b.min && (b.max < 0 || m.Days <= b.max) {
				out[i].Count++
				break
			}
		}
	}
	for i := range out {
		out[i].Percent = share(out[i].Count, measured)
	}
	return out
}

// Roles counts members per role, most common first.
func Roles(members []MemberResult) []RoleCount {
	byRole := make(map[string]int)
	for _, m := range members {
		role := m.Member.Role
		if role == "" {
			role = "member"
		}
		byRole[role]++
	}
	out := make([]RoleCount, 0, len(byRole))
	for r, n := range byRole {
		out = append(out, RoleCount{Role: r, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// Gainer is one member's positive gain in a metric.
type Gainer struct {
	Username string
	Delta    int64
}

// GainsSummary aggregates one metric's gain records.
type GainsSummary struct {
	Gainers       []Gainer // positive deltas only, largest first
	Total         int64
	Average       float64 // over gainers
	ActiveGainers int
	Records       int
}

// SummarizeGains aggregates gain records of a single metric.
func SummarizeGains(records []model.GainRecord) GainsSummary {
	s := GainsSummary{Records: len(records), Gainers: make([]Gainer, 0)}
	for _, g := range records {
		if !g.Positive() {
			continue
		}
		s.Gainers = append(s.Gainers, Gainer{Username: g.Username, Delta: g.Delta})
		s.Total += g.Delta
	}
	s.ActiveGainers = len(s.Gainers)
	if s.ActiveGainers > 0 {
		s.Average = float64(s.Total) / float64(s.ActiveGainers)
	}
	sort.SliceStable(s.Gainers, func(i, j int) bool {
		if s.Gainers[i].Delta != s.Gainers[j].Delta {
			return s.Gainers[i].Delta > s.Gainers[j].Delta
		}
		return s.Gainers[i].Username < s.Gainers[j].Username
	})
	return s
}
