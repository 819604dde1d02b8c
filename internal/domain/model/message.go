package model

import "time"

type Message struct {
	ID       string    `json:"id"`
	MatchID  string    `json:"match_id"`
	Sender   UserID    `json:"sender"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
	Sequence uint64    `json:"sequence"`
}

// ReadCursor tracks how far a participant has received and read a conversation.
// Both watermarks only move forward.
type ReadCursor struct {
	MatchID      string    `json:"match_id"`
	UserID       UserID    `json:"user_id"`
	DeliveredSeq uint64    `json:"delivered_seq"`
	ReadSeq      uint64    `json:"read_seq"`
	UpdatedAt    time.Time `json:"updated_at"`
}
