// Package scoring computes the aggregate clan health score from the
// distribution of activity states.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/clanpulse/internal/domain/model"
)

// Default per-state weights.
const (
	DefaultActiveWeight   = 1.0
	DefaultAtRiskWeight   = 0.5
	DefaultInactiveWeight = 0.1
	DefaultChurnedWeight  = 0.0

	maxScoreValue = 100
)

// Weights holds a validated per-state weight tuple. The zero value is not
// valid; build one with NewWeights or DefaultWeights.
type Weights struct {
	active   float64
	atRisk   float64
	inactive float64
	churned  float64
}

// NewWeights validates and returns a weight tuple. Every weight must lie in
// [0,1] and the tuple must not increase from Active to Churned.
func NewWeights(active, atRisk, inactive, churned float64) (Weights, error) {
	named := []struct {
		field string
		value float64
	}{
		{"active", active},
		{"at_risk", atRisk},
		{"inactive", inactive},
		{"churned", churned},
	}
	for _, n := range named {
		if math.IsNaN(n.value) || n.value < 0 || n.value > 1 {
			return Weights{}, invalid("weight_"+n.field, fmt.Sprintf("%v outside [0,1]", n.value))
		}
	}
	for i := 1; i < len(named); i++ {
		if named[i].value > named[i-1].value {
			return Weights{}, invalid("weight_"+named[i].field,
				fmt.Sprintf("%v exceeds weight_%s %v", named[i].value, named[i-1].field, named[i-1].value))
		}
	}
	return Weights{active: active, atRisk: atRisk, inactive: inactive, churned: churned}, nil
}

// DefaultWeights returns 1.0 / 0.5 / 0.1 / 0.0.
func DefaultWeights() Weights {
	return Weights{
		active:   DefaultActiveWeight,
		atRisk:   DefaultAtRiskWeight,
		inactive: DefaultInactiveWeight,
		churned:  DefaultChurnedWeight,
	}
}

// Validate re-checks the tuple against the NewWeights rules.
func (w Weights) Validate() error {
	_, err := NewWeights(w.active, w.atRisk, w.inactive, w.churned)
	return err
}

// For returns the weight of a state. InsufficientData has no weight.
func (w Weights) For(s model.ActivityState) (float64, bool) {
	switch s {
	case model.Active:
		return w.active, true
	case model.AtRisk:
		return w.atRisk, true
	case model.Inactive:
		return w.inactive, true
	case model.Churned:
		return w.churned, true
	default:
		return 0, false
	}
}

// Map returns the weights keyed by state name.
func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		model.Active.String():   w.active,
		model.AtRisk.String():   w.atRisk,
		model.Inactive.String(): w.inactive,
		model.Churned.String():  w.churned,
	}
}

// Health computes the 0-100 score from per-state counts. Only classified
// states enter the denominator. The second result is false when there is
// nothing to score, in which case the score is undefined.
func Health(counts map[model.ActivityState]int, w Weights) (float64, bool) {
	total := 0
	sum := 0.0
	for _, s := range model.States {
		n := counts[s]
		if n < 0 {
			n = 0
		}
		weight, _ := w.For(s)
		total += n
		sum += float64(n) * weight
	}
	if total == 0 {
		return 0, false
	}
	score := sum / float64(total) * maxScoreValue
	return math.Max(0, math.Min(maxScoreValue, score)), true
}
