package dto

import "time"

type SendMessageRequest struct {
	Sender string `json:"sender,omitempty"`
	Body   string `json:"body"`
}

type MessageItem struct {
	ID       string    `json:"id"`
	MatchID  string    `json:"match_id"`
	Sender   string    `json:"sender"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
	Sequence uint64    `json:"sequence"`
	Delivery string    `json:"delivery,omitempty"`
}

type MessagesResponse struct {
	Items     []MessageItem `json:"items"`
	NextAfter uint64        `json:"next_after"`
	HasMore   bool          `json:"has_more"`
}

type MarkReadRequest struct {
	Reader   string `json:"reader,omitempty"`
	Sequence uint64 `json:"sequence"`
}

type CursorResponse struct {
	MatchID      string    `json:"match_id"`
	UserID       string    `json:"user_id"`
	DeliveredSeq uint64    `json:"delivered_seq"`
	ReadSeq      uint64    `json:"read_seq"`
	UpdatedAt    time.Time `json:"updated_at"`
}
