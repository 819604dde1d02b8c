package enums

import "strings"

type Decision string

const (
	DecisionLike      Decision = "like"
	DecisionPass      Decision = "pass"
	DecisionSuperLike Decision = "superlike"
)

// ParseDecision accepts case-insensitive input with optional underscores or
// dashes, so "SUPER_LIKE" and "super-like" both resolve to DecisionSuperLike.
func ParseDecision(input string) (Decision, bool) {
	value := strings.ToLower(strings.TrimSpace(input))
	value = strings.NewReplacer("_", "", "-", "").Replace(value)
	switch Decision(value) {
	case DecisionLike, DecisionPass, DecisionSuperLike:
		return Decision(value), true
	case "dislike", "nope":
		return DecisionPass, true
	default:
		return "", false
	}
}

func (d Decision) IsPositive() bool {
	return d == DecisionLike || d == DecisionSuperLike
}
