// Package types contains the JSON shapes served by the HTTP API and printed
// by the CLI.
package types

import "time"

// Report is the full dashboard payload of one analysis pass.
type Report struct {
	GroupID     int                `json:"group_id"`
	GroupName   string             `json:"group_name"`
	GeneratedAt time.Time          `json:"generated_at"`
	HealthScore *float64           `json:"health_score"` // null when no member is classifiable
	Thresholds  Thresholds         `json:"thresholds"`
	Weights     map[string]float64 `json:"weights"`
	Total       int                `json:"total_members"`
	Tracked     int                `json:"tracked_members"`
	Untracked   int                `json:"untracked_members"`
	Counts      map[string]int     `json:"counts"`
	Percentages map[string]float64 `json:"percentages"`
	Totals      Totals             `json:"totals"`
	Averages    Averages           `json:"averages"`
	Retention   []Retention        `json:"retention"`
	Buckets     []Bucket           `json:"buckets"`
	Roles       []RoleCount        `json:"roles"`
	Risk        []RiskEntry        `json:"risk"`
	Members     []MemberRow        `json:"members"`
}

// Thresholds echoes the day thresholds a report was computed with.
type Thresholds struct {
	Active   int `json:"active"`
	AtRisk   int `json:"at_risk"`
	Inactive int `json:"inactive"`
}

// Totals sums tracked members' progress.
type Totals struct {
	Experience int64   `json:"xp"`
	EHP        float64 `json:"ehp"`
	EHB        float64 `json:"ehb"`
}

// Averages are per tracked member.
type Averages struct {
	Experience float64 `json:"xp"`
	EHP        float64 `json:"ehp"`
	EHB        float64 `json:"ehb"`
}

// Retention is the share of members active within Days.
type Retention struct {
	Days    int     `json:"days"`
	Percent float64 `json:"pct"`
}

// Bucket is one bar of the inactivity histogram.
type Bucket struct {
	Label   string  `json:"label"`
	Min     int     `json:"min_days"`
	Max     *int    `json:"max_days"` // null for the open-ended bucket
	Count   int     `json:"count"`
	Percent float64 `json:"pct"`
}

// RoleCount is the number of members with a role.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// RiskEntry is one intervention candidate.
type RiskEntry struct {
	Rank         int        `json:"rank"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	DaysInactive int        `json:"days_inactive"`
	Experience   int64      `json:"xp"`
	LastActive   *time.Time `json:"last_active"`
	Priority     string     `json:"priority"`
}

// MemberRow is one member table row.
type MemberRow struct {
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	DaysInactive *int       `json:"days_inactive"` // null without evidence
	Evidence     string     `json:"evidence"`
	LastActive   *time.Time `json:"last_active"`
	JoinedAt     *time.Time `json:"joined_at"`
	Experience   int64      `json:"xp"`
	EHP          float64    `json:"ehp"`
	EHB          float64    `json:"ehb"`
	AccountType  string     `json:"type"`
	Build        string     `json:"build"`
	Tracked      bool       `json:"tracked"`
}

// Gainer is one member's gain in a metric.
type Gainer struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Gained   int64  `json:"gained"`
}

// GainsReport summarizes one metric over one period.
type GainsReport struct {
	Metric        string   `json:"metric"`
	Period        string   `json:"period"`
	Total         int64    `json:"total"`
	Average       float64  `json:"average"`
	ActiveGainers int      `json:"active_gainers"`
	Records       int      `json:"records"`
	Gainers       []Gainer `json:"gainers"`
}

// Achievement is one entry of the achievement feed.
type Achievement struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Metric    string    `json:"metric"`
	Threshold int64     `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// Competition is one group competition.
type Competition struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Metric       string    `json:"metric"`
	Type         string    `json:"type"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Participants int       `json:"participants"`
}

// Competitions splits competitions by whether they have ended.
type Competitions struct {
	Active []Competition `json:"active"`
	Past   []Competition `json:"past"`
}

// Stats describes the running service.
type Stats struct {
	Started       bool           `json:"started"`
	GroupID       int            `json:"group_id"`
	Analyses      int64          `json:"analyses"`
	LastAnalysis  *time.Time     `json:"last_analysis"`
	LastHealth    *float64       `json:"last_health_score"`
	Refreshes     int64          `json:"refreshes"`
	LastRefresh   *time.Time     `json:"last_refresh"`
	LastRefreshID string         `json:"last_refresh_id,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
	CacheEntries  map[string]int `json:"cache_entries"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	RateLimit     float64        `json:"rate_limit_per_minute"`
}

// RefreshResult acknowledges POST /api/refresh.
type RefreshResult struct {
	ID          string    `json:"id"`
	Invalidated int       `json:"invalidated"`
	RequestedAt time.Time `json:"requested_at"`
}

// ThresholdOverride replaces individual day thresholds for one request.
// Nil fields keep the configured value.
type ThresholdOverride struct {
	Active   *int
	AtRisk   *int
	Inactive *int
}

// Empty reports whether nothing is overridden.
func (o ThresholdOverride) Empty() bool {
	return o.Active == nil && o.AtRisk == nil && o.Inactive == nil
}

// MemberQuery filters and orders the member table. Empty filters match all.
type MemberQuery struct {
	States []string
	Roles  []string
	Sort   string
}
