package model

import "time"

// Roster is the immutable input of one analysis pass.
type Roster struct {
	Members []Member
	Gains   map[string][]GainRecord // keyed by Member.Username
	Now     time.Time
}

// LastActivity returns the latest instant the member is known to have been
// active: the upstream last-changed time or the start of any window with a
// positive gain, whichever is later. ok is false when neither exists.
func (r Roster) LastActivity(m Member) (t time.Time, ok bool) {
	if !m.LastChanged.IsZero() {
		t, ok = m.LastChanged, true
	}
	for _, g := range r.Gains[m.Username] {
		if !g.Positive() || g.Start.IsZero() {
			continue
		}
		if !ok || g.Start.After(t) {
			t, ok = g.Start, true
		}
	}
	return t, ok
}

// GainsFor returns the gain records of the given metric across the roster.
func (r Roster) GainsFor(metric string) []GainRecord {
	var out []GainRecord
	for _, m := range r.Members {
		for _, g := range r.Gains[m.Username] {
			if g.Metric == metric {
				out = append(out, g)
			}
		}
	}
	return out
}
