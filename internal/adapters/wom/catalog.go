package wom

import "slices"

// Periods accepted by the gained endpoint.
var Periods = []string{"day", "week", "month", "year"} //nolint:gochecknoglobals // read-only catalog

// DefaultPeriod is the gain lookback used when none is configured.
const DefaultPeriod = "week"

// Skills are the skill metrics of the game hiscores.
var Skills = []string{ //nolint:gochecknoglobals // read-only catalog
	"overall",
	"attack", "defence", "strength", "hitpoints", "ranged", "prayer",
	"magic", "cooking", "woodcutting", "fletching", "fishing",
	"firemaking", "crafting", "smithing", "mining", "herblore",
	"agility", "thieving", "slayer", "farming", "runecrafting",
	"hunter", "construction", "sailing",
}

// CombatSkills is the combat subset of Skills.
var CombatSkills = []string{"attack", "defence", "strength", "hitpoints", "ranged", "prayer", "magic"} //nolint:gochecknoglobals // read-only catalog

// ValidPeriod reports whether p is a known gain period.
func ValidPeriod(p string) bool { return slices.Contains(Periods, p) }

// ValidMetric reports whether m is a skill or an efficiency metric.
func ValidMetric(m string) bool {
	return m == "ehp" || m == "ehb" || slices.Contains(Skills, m)
}
