package dto

import "time"

type MatchItem struct {
	ID          string     `json:"id"`
	UserA       string     `json:"user_a"`
	UserB       string     `json:"user_b"`
	Counterpart string     `json:"counterpart,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UnmatchedBy string     `json:"unmatched_by,omitempty"`
	UnmatchedAt *time.Time `json:"unmatched_at,omitempty"`
	LastSeq     uint64     `json:"last_seq"`
}

type MatchSummaryItem struct {
	MatchItem
	LastMessage *MessageItem `json:"last_message,omitempty"`
	Unread      uint64       `json:"unread"`
}

type MatchesResponse struct {
	Items []MatchSummaryItem `json:"items"`
}

type UnmatchRequest struct {
	Requestor string `json:"requestor,omitempty"`
}

type BlockRequest struct {
	Requestor string `json:"requestor,omitempty"`
	Reason    string `json:"reason"`
}

type ReportRequest struct {
	Reporter string `json:"reporter,omitempty"`
	Reason   string `json:"reason"`
	Details  string `json:"details"`
}

type ReportResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}
