package model

// ActivityState is the derived engagement class of a member.
type ActivityState int

// Activity states, ordered from most to least engaged. InsufficientData sits
// outside that order.
const (
	Active ActivityState = iota
	AtRisk
	Inactive
	Churned
	InsufficientData
)

// States lists the classifiable states from best to worst.
var States = []ActivityState{Active, AtRisk, Inactive, Churned} //nolint:gochecknoglobals // fixed enumeration

// AllStates lists every state including InsufficientData.
var AllStates = []ActivityState{Active, AtRisk, Inactive, Churned, InsufficientData} //nolint:gochecknoglobals // fixed enumeration

// String returns the snake_case wire name.
func (s ActivityState) String() string {
	switch s {
	case Active:
		return "active"
	case AtRisk:
		return "at_risk"
	case Inactive:
		return "inactive"
	case Churned:
		return "churned"
	case InsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

// Classified reports whether the state came from the threshold rule.
func (s ActivityState) Classified() bool {
	return s >= Active && s <= Churned
}

// ParseActivityState maps a wire name back to a state.
func ParseActivityState(v string) (ActivityState, bool) {
	for _, s := range AllStates {
		if s.String() == v {
			return s, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (s ActivityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
