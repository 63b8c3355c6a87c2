package activity

import (
	"fmt"
	"time"

	"github.com/okian/clanpulse/internal/domain/model"
)

const day = 24 * time.Hour

// Evidence says what an observation's day count is measured from.
type Evidence int

const (
	// EvidenceNone means nothing is known about the member's activity.
	EvidenceNone Evidence = iota
	// EvidenceJoin means only the membership start is known.
	EvidenceJoin
	// EvidenceGain means an activity timestamp or a positive gain exists.
	EvidenceGain
)

func (e Evidence) String() string {
	switch e {
	case EvidenceJoin:
		return "join"
	case EvidenceGain:
		return "gain"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Evidence) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Observation is the per-member input of classification.
type Observation struct {
	Username   string
	Experience int64
	Days       int       // whole days since Since; meaningless with EvidenceNone
	Since      time.Time // instant Days is counted from
	Evidence   Evidence
}

// HasDays reports whether Days carries a measurement.
func (o Observation) HasDays() bool {
	return o.Evidence != EvidenceNone
}

// Observe derives one observation per roster member, in roster order.
func Observe(r model.Roster) ([]Observation, error) {
	out := make([]Observation, 0, len(r.Members))
	for _, m := range r.Members {
		o, err := observe(r, m)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func observe(r model.Roster, m model.Member) (Observation, error) {
	o := Observation{Username: m.Username, Experience: m.Experience}
	if !m.Tracked {
		return o, nil
	}
	if at, ok := r.LastActivity(m); ok {
		o.Since, o.Evidence = at, EvidenceGain
	} else if !m.JoinedAt.IsZero() {
		o.Since, o.Evidence = m.JoinedAt, EvidenceJoin
	} else {
		return o, nil
	}
	days := daysBetween(o.Since, r.Now)
	if days < 0 {
		return Observation{}, invalid("days", fmt.Sprintf("%s: last activity %s is after %s",
			m.Username, o.Since.Format(time.RFC3339), r.Now.Format(time.RFC3339)))
	}
	o.Days = days
	return o, nil
}

// daysBetween truncates toward zero, so up to a day of clock skew reads as 0.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

// ClassifyObservation applies the threshold rule to an observation. Members
// without evidence, and members whose only evidence is a join date inside the
// active window, are InsufficientData.
func ClassifyObservation(o Observation, t Thresholds) (model.ActivityState, error) {
	switch o.Evidence {
	case EvidenceNone:
		return model.InsufficientData, nil
	case EvidenceJoin:
		if o.Days < 0 {
			return model.InsufficientData, invalid("days", fmt.Sprintf("%d is negative", o.Days))
		}
		if o.Days <= t.active {
			return model.InsufficientData, nil
		}
	}
	return Classify(o.Days, t)
}
