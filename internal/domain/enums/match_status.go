package enums

type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

func (s MatchStatus) Valid() bool {
	return s == MatchStatusActive || s == MatchStatusUnmatched
}
