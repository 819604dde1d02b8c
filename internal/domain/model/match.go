package model

import (
	"time"

	"github.com/relun/backend/internal/domain/enums"
)

type Match struct {
	ID          string            `json:"id"`
	UserA       UserID            `json:"user_a"`
	UserB       UserID            `json:"user_b"`
	CreatedAt   time.Time         `json:"created_at"`
	Status      enums.MatchStatus `json:"status"`
	UnmatchedBy UserID            `json:"unmatched_by,omitempty"`
	UnmatchedAt *time.Time        `json:"unmatched_at,omitempty"`
	LastSeq     uint64            `json:"last_seq"`
}

func (m Match) Pair() PairKey {
	return PairKey{UserA: m.UserA, UserB: m.UserB}
}

func (m Match) HasParticipant(id UserID) bool {
	return id != "" && (id == m.UserA || id == m.UserB)
}

func (m Match) Counterpart(id UserID) UserID {
	return m.Pair().Other(id)
}

func (m Match) IsActive() bool {
	return m.Status == enums.MatchStatusActive
}

type Block struct {
	Actor     UserID    `json:"actor"`
	Target    UserID    `json:"target"`
	MatchID   string    `json:"match_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	ID        string             `json:"id"`
	MatchID   string             `json:"match_id"`
	Reporter  UserID             `json:"reporter"`
	Target    UserID             `json:"target"`
	Reason    enums.ReportReason `json:"reason"`
	Details   string             `json:"details"`
	CreatedAt time.Time          `json:"created_at"`
}
