package dto

import (
	"github.com/relun/backend/internal/domain/model"
	convsvc "github.com/relun/backend/internal/services/conversations"
)

// NewMatchItem renders m for viewer. An empty viewer omits the counterpart.
func NewMatchItem(m model.Match, viewer model.UserID) MatchItem {
	item := MatchItem{
		ID:          m.ID,
		UserA:       m.UserA.String(),
		UserB:       m.UserB.String(),
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		UnmatchedBy: m.UnmatchedBy.String(),
		UnmatchedAt: m.UnmatchedAt,
		LastSeq:     m.LastSeq,
	}
	if m.HasParticipant(viewer) {
		item.Counterpart = m.Counterpart(viewer).String()
	}
	return item
}

func NewMessageItem(msg model.Message) MessageItem {
	return MessageItem{
		ID:       msg.ID,
		MatchID:  msg.MatchID,
		Sender:   msg.Sender.String(),
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		Sequence: msg.Sequence,
	}
}

func NewMessageViewItem(view convsvc.MessageView) MessageItem {
	item := NewMessageItem(view.Message)
	item.Delivery = string(view.Delivery)
	return item
}

func NewSwipeItem(rec model.SwipeRecord) SwipeItem {
	return SwipeItem{
		Actor:     rec.Actor.String(),
		Target:    rec.Target.String(),
		Decision:  string(rec.Decision),
		CreatedAt: rec.CreatedAt,
	}
}

func NewCursorResponse(c model.ReadCursor) CursorResponse {
	return CursorResponse{
		MatchID:      c.MatchID,
		UserID:       c.UserID.String(),
		DeliveredSeq: c.DeliveredSeq,
		ReadSeq:      c.ReadSeq,
		UpdatedAt:    c.UpdatedAt,
	}
}
