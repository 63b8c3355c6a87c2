// Package model contains domain models passed between layers.
package model

import "time"

// Member is one clan member as seen in a single refresh.
type Member struct {
	Username    string           // stable identifier
	DisplayName string           // as shown in game
	Role        string           // clan role, e.g. "member", "owner"
	Experience  int64            // total (overall) experience
	EHP         float64          // efficient hours played
	EHB         float64          // efficient hours bossed
	AccountType string           // regular, ironman, ...
	Build       string           // main, zerker, ...
	LastChanged time.Time        // last experience change reported upstream; zero if unknown
	JoinedAt    time.Time        // membership start; zero if unknown
	Tracked     bool             // false when upstream has no stats for the player
	Skills      map[string]int64 // per-skill experience snapshot
}

// Name returns the display name, falling back to the username.
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// GainRecord is an experience delta for one metric over a time window.
type GainRecord struct {
	Username string
	Metric   string
	Delta    int64
	Start    time.Time
	End      time.Time
}

// Positive reports whether the record proves activity inside its window.
func (g GainRecord) Positive() bool {
	return g.Delta > 0
}
