package wom

import (
	"bytes"
	"strings"
	"time"
)

// Timestamp decodes WOM ISO-8601 times. Empty, null or malformed values
// decode to the zero time instead of failing the whole payload.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	b = bytes.TrimSpace(b)
	if len(b) < 2 || b[0] != '"' {
		return nil
	}
	t.Time = ParseTime(string(b[1 : len(b)-1]))
	return nil
}

// MarshalJSON writes RFC 3339 or null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// ParseTime parses a WOM timestamp, returning the zero time on failure.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Player is the player object embedded in most responses.
type Player struct {
	ID            int       `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName"`
	Type          string    `json:"type"`
	Build         string    `json:"build"`
	Status        string    `json:"status"`
	Exp           *int64    `json:"exp"`
	EHP           float64   `json:"ehp"`
	EHB           float64   `json:"ehb"`
	RegisteredAt  Timestamp `json:"registeredAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
	LastChangedAt Timestamp `json:"lastChangedAt"`
}

// Untracked reports whether WOM holds no stats for the player.
func (p Player) Untracked() bool {
	return p.Status == "untracked" || p.Exp == nil
}

// Membership links a player to the group.
type Membership struct {
	PlayerID  int       `json:"playerId"`
	GroupID   int       `json:"groupId"`
	Role      string    `json:"role"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
	Player    Player    `json:"player"`
}

// GroupDetails is GET /groups/{id}.
type GroupDetails struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	ClanChat    string       `json:"clanChat"`
	Description string       `json:"description"`
	Homeworld   *int         `json:"homeworld"`
	Verified    bool         `json:"verified"`
	MemberCount int          `json:"memberCount"`
	CreatedAt   Timestamp    `json:"createdAt"`
	UpdatedAt   Timestamp    `json:"updatedAt"`
	Memberships []Membership `json:"memberships"`
}

// HiscoreData is the metric value of one hiscore row.
type HiscoreData struct {
	Type       string `json:"type"`
	Rank       int    `json:"rank"`
	Level      int    `json:"level"`
	Experience int64  `json:"experience"`
}

// HiscoreEntry is one row of GET /groups/{id}/hiscores.
type HiscoreEntry struct {
	Player Player      `json:"player"`
	Role   string      `json:"role,omitempty"`
	Data   HiscoreData `json:"data"`
}

// GainData is the delta of one gained row.
type GainData struct {
	Gained int64   `json:"gained"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// GainedEntry is one row of GET /groups/{id}/gained.
type GainedEntry struct {
	Player    Player    `json:"player"`
	StartDate Timestamp `json:"startDate"`
	EndDate   Timestamp `json:"endDate"`
	Data      GainData  `json:"data"`
}

// Achievement is one row of GET /groups/{id}/achievements.
type Achievement struct {
	PlayerID  int       `json:"playerId"`
	Name      string    `json:"name"`
	Metric    string    `json:"metric"`
	Threshold int64     `json:"threshold"`
	CreatedAt Timestamp `json:"createdAt"`
	Player    Player    `json:"player"`
}

// Competition is one row of GET /groups/{id}/competitions.
type Competition struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Metric           string    `json:"metric"`
	Type             string    `json:"type"`
	StartsAt         Timestamp `json:"startsAt"`
	EndsAt           Timestamp `json:"endsAt"`
	GroupID          int       `json:"groupId"`
	ParticipantCount int       `json:"participantCount"`
}

// ProbeResult describes a raw endpoint check.
type ProbeResult struct {
	URL        string
	StatusCode int
	Items      int      // list length, or -1 for an object
	Keys       []string // first keys of the object or first list item
	Latency    time.Duration
}
