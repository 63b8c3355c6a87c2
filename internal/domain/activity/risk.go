package activity

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/clanpulse/internal/domain/model"
)

// Default tier boundaries: more than 45 days is high, 31 to 45 medium.
const (
	DefaultRiskHighDays   = 45
	DefaultRiskMediumDays = 30
)

// Tier is the outreach priority of a risk entry.
type Tier string

// Tiers.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// RiskTiers holds the day boundaries above which an entry is medium or high.
type RiskTiers struct {
	medium int
	high   int
}

// NewRiskTiers fails with ErrInvalidInput unless 0 <= medium < high.
func NewRiskTiers(medium, high int) (RiskTiers, error) {
	t := RiskTiers{medium: medium, high: high}
	if err := t.validate(); err != nil {
		return RiskTiers{}, err
	}
	return t, nil
}

// DefaultRiskTiers returns medium above 30 days and high above 45.
func DefaultRiskTiers() RiskTiers {
	return RiskTiers{medium: DefaultRiskMediumDays, high: DefaultRiskHighDays}
}

func (t RiskTiers) validate() error {
	if t.medium < 0 {
		return invalid("risk_medium_days", fmt.Sprintf("%d is negative", t.medium))
	}
	if t.high <= t.medium {
		return invalid("risk_high_days", fmt.Sprintf("%d must exceed risk_medium_days %d", t.high, t.medium))
	}
	return nil
}

// TierFor returns the tier of a day count.
func (t RiskTiers) TierFor(days int) Tier {
	switch {
	case days > t.high:
		return TierHigh
	case days > t.medium:
		return TierMedium
	default:
		return TierLow
	}
}

// RiskEntry is one intervention candidate.
type RiskEntry struct {
	Username    string
	DisplayName string
	Role        string
	State       model.ActivityState
	Days        int
	Experience  int64
	LastActive  time.Time // zero when only a join date is known
	Tier        Tier
}

// RankRisk keeps AtRisk and Inactive members and orders them by days
// descending, experience ascending, then username. The result is a fresh
// slice; the input is not reordered.
func RankRisk(members []MemberResult, tiers RiskTiers) []RiskEntry {
	out := make([]RiskEntry, 0)
	for _, m := range members {
		if m.State != model.AtRisk && m.State != model.Inactive {
			continue
		}
		var last time.Time
		if m.Evidence == EvidenceGain {
			last = m.Since
		}
		out = append(out, RiskEntry{
			Username:    m.Member.Username,
			DisplayName: m.Member.Name(),
			Role:        m.Member.Role,
			State:       m.State,
			Days:        m.Days,
			Experience:  m.Member.Experience,
			LastActive:  last,
			Tier:        tiers.TierFor(m.Days),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Days != b.Days {
			return a.Days > b.Days
		}
		if a.Experience != b.Experience {
			return a.Experience < b.Experience
		}
		return a.Username < b.Username
	})
	return out
}
