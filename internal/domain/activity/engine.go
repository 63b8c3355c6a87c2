// Package activity classifies clan members by days since their last activity
// and derives the health score, the churn-risk ranking and roster insights
// from one immutable roster snapshot. Everything here is pure.
package activity

import (
	"time"

	"github.com/okian/clanpulse/internal/domain/model"
	"github.com/okian/clanpulse/internal/domain/scoring"
)

// MemberResult is a member together with its classification.
type MemberResult struct {
	Member   model.Member
	State    model.ActivityState
	Days     int
	Since    time.Time
	Evidence Evidence
}

// HasDays reports whether Days carries a measurement.
func (m MemberResult) HasDays() bool {
	return m.Evidence != EvidenceNone
}

// Result is the output of one engine pass.
type Result struct {
	Members    []MemberResult
	Counts     map[model.ActivityState]int
	Health     *float64 // nil when no member is classifiable
	Risk       []RiskEntry
	Insights   Insights
	Thresholds Thresholds
	Weights    scoring.Weights
	Now        time.Time
}

// Engine runs classification passes with a fixed configuration.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine for a validated configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run classifies every roster member and aggregates the result. An empty
// roster is valid and yields an undefined health score.
func (e *Engine) Run(r model.Roster) (Result, error) {
	if err := e.cfg.thresholds.validate(); err != nil {
		return Result{}, err
	}
	obs, err := Observe(r)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Members:    make([]MemberResult, 0, len(obs)),
		Counts:     make(map[model.ActivityState]int, len(model.AllStates)),
		Thresholds: e.cfg.thresholds,
		Weights:    e.cfg.weights,
		Now:        r.Now,
	}
	for _, s := range model.AllStates {
		res.Counts[s] = 0
	}
	for i, o := range obs {
		state, err := ClassifyObservation(o, e.cfg.thresholds)
		if err != nil {
			return Result{}, err
		}
		res.Counts[state]++
		res.Members = append(res.Members, MemberResult{
			Member:   r.Members[i],
			State:    state,
			Days:     o.Days,
			Since:    o.Since,
			Evidence: o.Evidence,
		})
	}

	if score, ok := scoring.Health(res.Counts, e.cfg.weights); ok {
		res.Health = &score
	}
	res.Risk = RankRisk(res.Members, e.cfg.tiers)

	t, avg, tracked := totals(res.Members)
	res.Insights = Insights{
		Total:       len(res.Members),
		Tracked:     tracked,
		Untracked:   len(res.Members) - tracked,
		Percentages: percentages(res.Counts, len(res.Members)),
		Totals:      t,
		Averages:    avg,
		Retention:   Retention(res.Members, e.cfg.retention),
		Buckets:     Buckets(res.Members),
		Roles:       Roles(res.Members),
	}
	return res, nil
}
