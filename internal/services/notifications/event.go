package notifications

import (
	"time"

	"github.com/relun/backend/internal/domain/model"
)

type EventType string

const (
	EventMatchCreated    EventType = "match.created"
	EventMessageAppended EventType = "message.appended"
)

type Event struct {
	Type       EventType      `json:"type"`
	MatchID    string         `json:"match_id"`
	Recipients []model.UserID `json:"recipients"`
	Match      *model.Match   `json:"match,omitempty"`
	Message    *model.Message `json:"message,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
