package activity

import (
	"fmt"

	"github.com/okian/clanpulse/internal/domain/model"
)

// Default day thresholds.
const (
	DefaultActiveDays   = 7
	DefaultAtRiskDays   = 30
	DefaultInactiveDays = 90
)

// Thresholds is a validated, strictly ordered day-threshold tuple. Each
// bound is inclusive for the state it closes.
type Thresholds struct {
	active   int
	atRisk   int
	inactive int
}

// NewThresholds fails with ErrInvalidInput unless 0 <= active < atRisk < inactive.
func NewThresholds(active, atRisk, inactive int) (Thresholds, error) {
	switch {
	case active < 0:
		return Thresholds{}, invalid("active_days", fmt.Sprintf("%d is negative", active))
	case atRisk <= active:
		return Thresholds{}, invalid("at_risk_days", fmt.Sprintf("%d must exceed active_days %d", atRisk, active))
	case inactive <= atRisk:
		return Thresholds{}, invalid("inactive_days", fmt.Sprintf("%d must exceed at_risk_days %d", inactive, atRisk))
	}
	return Thresholds{active: active, atRisk: atRisk, inactive: inactive}, nil
}

// DefaultThresholds returns 7 / 30 / 90.
func DefaultThresholds() Thresholds {
	return Thresholds{active: DefaultActiveDays, atRisk: DefaultAtRiskDays, inactive: DefaultInactiveDays}
}

func (t Thresholds) Active() int   { return t.active }
func (t Thresholds) AtRisk() int   { return t.atRisk }
func (t Thresholds) Inactive() int { return t.inactive }

// Classify maps days since last activity to a state.
func Classify(days int, t Thresholds) (model.ActivityState, error) {
	if days < 0 {
		return model.InsufficientData, invalid("days", fmt.Sprintf("%d is negative", days))
	}
	switch {
	case days <= t.active:
		return model.Active, nil
	case days <= t.atRisk:
		return model.AtRisk, nil
	case days <= t.inactive:
		return model.Inactive, nil
	default:
		return model.Churned, nil
	}
}

func (t Thresholds) validate() error {
	_, err := NewThresholds(t.active, t.atRisk, t.inactive)
	return err
}
