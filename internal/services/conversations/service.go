package conversations

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/domain/rules"
	"github.com/relun/backend/internal/pkg/retry"
	"github.com/relun/backend/internal/repo"
)

const (
	defaultPageSize    = 50
	defaultMaxPageSize = 200
)

type Store interface {
	repo.MatchTxRunner
	GetMatch(ctx context.Context, matchID string) (model.Match, error)
	ListMatches(ctx context.Context, filter repo.MatchFilter) ([]model.Match, error)
	ListMessages(ctx context.Context, matchID string, afterSeq uint64, limit int) ([]model.Message, error)
	LastMessage(ctx context.Context, matchID string) (model.Message, error)
	ListCursors(ctx context.Context, matchID string) ([]model.ReadCursor, error)
	AdvanceCursor(ctx context.Context, cursor model.ReadCursor) (model.ReadCursor, error)
}

type Notifier interface {
	OnMessageAppended(msg model.Message, recipient model.UserID)
}

type RateGuard interface {
	Check(ctx context.Context, userID model.UserID) error
}

type Config struct {
	Retry         retry.Policy
	MaxBodyLength int
	PageSize      int
	MaxPageSize   int
}

type Dependencies struct {
	Store       Store
	Notifier    Notifier
	RateLimiter RateGuard
	Logger      *zap.Logger
}

// MessageView is a message as seen by one participant.
type MessageView struct {
	model.Message
	Delivery enums.DeliveryState `json:"delivery"`
}

type Page struct {
	Items     []MessageView
	NextAfter uint64
	HasMore   bool
}

type Service struct {
	store       Store
	notifier    Notifier
	rateLimiter RateGuard
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
	newID       func() string
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.MaxBodyLength <= 0 {
		cfg.MaxBodyLength = rules.DefaultMessageMaxLength
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = defaultMaxPageSize
	}

	return &Service{
		store:       deps.Store,
		notifier:    deps.Notifier,
		rateLimiter: deps.RateLimiter,
		logger:      deps.Logger,
		cfg:         cfg,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Append adds a message to an active match. The sequence is taken while the
// match row is locked, so concurrent senders get distinct contiguous numbers.
func (s *Service) Append(ctx context.Context, matchID string, sender model.UserID, body string) (model.Message, error) {
	normalized, err := rules.NormalizeBody(body, s.cfg.MaxBodyLength)
	if err != nil {
		return model.Message{}, err
	}
	if strings.TrimSpace(matchID) == "" || sender.Empty() {
		return model.Message{}, errs.ErrValidation
	}
	if s.store == nil {
		return model.Message{}, fmt.Errorf("conversation store is nil")
	}
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Check(ctx, sender); err != nil {
			return model.Message{}, err
		}
	}

	var (
		msg       model.Message
		recipient model.UserID
	)
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.store.InMatchTx(ctx, matchID, func(txCtx context.Context, tx repo.MatchTx, m model.Match) error {
			if !m.HasParticipant(sender) {
				return errs.ErrForbidden
			}
			if !m.IsActive() {
				return errs.ErrMatchInactive
			}

			seq, err := tx.NextSequence(txCtx, m.ID)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			msg = model.Message{
				ID:       s.newID(),
				MatchID:  m.ID,
				Sender:   sender,
				Body:     normalized,
				SentAt:   now,
				Sequence: seq,
			}
			if err := tx.InsertMessage(txCtx, msg); err != nil {
				return err
			}
			if _, err := tx.AdvanceCursor(txCtx, model.ReadCursor{
				MatchID:   m.ID,
				UserID:    sender,
				ReadSeq:   seq,
				UpdatedAt: now,
			}); err != nil {
				return err
			}

			recipient = m.Counterpart(sender)
			return nil
		})
	})
	if err != nil {
		return model.Message{}, err
	}

	if s.notifier != nil {
		s.notifier.OnMessageAppended(msg, recipient)
	}
	return msg, nil
}

// Messages yields the conversation in sequence order starting after the
// given sequence. It stops at the last message that existed when iteration
// began, and every range over it starts again from after. Participants may
// read history in any match status.
func (s *Service) Messages(ctx context.Context, matchID string, viewer model.UserID, after uint64) iter.Seq2[model.Message, error] {
	return func(yield func(model.Message, error) bool) {
		m, err := s.authorize(ctx, matchID, viewer)
		if err != nil {
			yield(model.Message{}, err)
			return
		}

		cursor := after
		for cursor < m.LastSeq {
			page, err := s.listMessages(ctx, m.ID, cursor, s.cfg.PageSize)
			if err != nil {
				yield(model.Message{}, err)
				return
			}
			for _, msg := range page {
				if msg.Sequence > m.LastSeq {
					return
				}
				if !yield(msg, nil) {
					return
				}
				cursor = msg.Sequence
			}
			if len(page) < s.cfg.PageSize {
				return
			}
		}
	}
}

// List returns one page of the conversation with per-viewer delivery state
// and marks the returned messages as delivered to the viewer.
func (s *Service) List(ctx context.Context, matchID string, viewer model.UserID, after uint64, limit int) (Page, error) {
	if limit <= 0 {
		limit = s.cfg.PageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	items := make([]model.Message, 0, limit)
	hasMore := false
	for msg, err := range s.Messages(ctx, matchID, viewer, after) {
		if err != nil {
			return Page{}, err
		}
		if len(items) == limit {
			hasMore = true
			break
		}
		items = append(items, msg)
	}

	page := Page{Items: make([]MessageView, 0, len(items)), NextAfter: after, HasMore: hasMore}
	if len(items) == 0 {
		return page, nil
	}
	page.NextAfter = items[len(items)-1].Sequence

	own, other, err := s.cursorsFor(ctx, matchID, viewer)
	if err != nil {
		return Page{}, err
	}
	for _, msg := range items {
		page.Items = append(page.Items, MessageView{
			Message:  msg,
			Delivery: DeliveryState(msg, viewer, own, other),
		})
	}

	if page.NextAfter > own.DeliveredSeq {
		if _, err := s.store.AdvanceCursor(ctx, model.ReadCursor{
			MatchID:      matchID,
			UserID:       viewer,
			DeliveredSeq: page.NextAfter,
			UpdatedAt:    s.now().UTC(),
		}); err != nil {
			s.logger.Warn("advance delivered cursor failed",
				zap.String("match_id", matchID),
				zap.String("user_id", viewer.String()),
				zap.Error(err),
			)
		}
	}
	return page, nil
}

// MarkRead moves the reader's read watermark forward. Sequences past the
// last message are clamped to it.
func (s *Service) MarkRead(ctx context.Context, matchID string, reader model.UserID, seq uint64) (model.ReadCursor, error) {
	if strings.TrimSpace(matchID) == "" || reader.Empty() {
		return model.ReadCursor{}, errs.ErrValidation
	}
	if s.store == nil {
		return model.ReadCursor{}, fmt.Errorf("conversation store is nil")
	}

	var cursor model.ReadCursor
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.store.InMatchTx(ctx, matchID, func(txCtx context.Context, tx repo.MatchTx, m model.Match) error {
			if !m.HasParticipant(reader) {
				return errs.ErrForbidden
			}
			if seq > m.LastSeq {
				seq = m.LastSeq
			}
			var err error
			cursor, err = tx.AdvanceCursor(txCtx, model.ReadCursor{
				MatchID:      m.ID,
				UserID:       reader,
				DeliveredSeq: seq,
				ReadSeq:      seq,
				UpdatedAt:    s.now().UTC(),
			})
			return err
		})
	})
	if err != nil {
		return model.ReadCursor{}, err
	}
	return cursor, nil
}

// DeliveryState is what viewer sees for msg. Own messages reflect how far
// the counterpart got. Received messages are read once the viewer's read
// watermark passes them and delivered otherwise.
func DeliveryState(msg model.Message, viewer model.UserID, own, other model.ReadCursor) enums.DeliveryState {
	if msg.Sender == viewer {
		switch {
		case other.ReadSeq >= msg.Sequence:
			return enums.DeliveryStateRead
		case other.DeliveredSeq >= msg.Sequence:
			return enums.DeliveryStateDelivered
		default:
			return enums.DeliveryStateSent
		}
	}
	if own.ReadSeq >= msg.Sequence {
		return enums.DeliveryStateRead
	}
	return enums.DeliveryStateDelivered
}

func (s *Service) authorize(ctx context.Context, matchID string, viewer model.UserID) (model.Match, error) {
	if strings.TrimSpace(matchID) == "" || viewer.Empty() {
		return model.Match{}, errs.ErrValidation
	}
	if s.store == nil {
		return model.Match{}, fmt.Errorf("conversation store is nil")
	}

	var m model.Match
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		m, err = s.store.GetMatch(ctx, matchID)
		return err
	})
	if err != nil {
		return model.Match{}, err
	}
	if !m.HasParticipant(viewer) {
		return model.Match{}, errs.ErrForbidden
	}
	return m, nil
}

func (s *Service) listMessages(ctx context.Context, matchID string, after uint64, limit int) ([]model.Message, error) {
	var page []model.Message
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		page, err = s.store.ListMessages(ctx, matchID, after, limit)
		return err
	})
	return page, err
}

func (s *Service) cursorsFor(ctx context.Context, matchID string, viewer model.UserID) (model.ReadCursor, model.ReadCursor, error) {
	var cursors []model.ReadCursor
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		cursors, err = s.store.ListCursors(ctx, matchID)
		return err
	})
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.ReadCursor{}, model.ReadCursor{}, err
	}

	var own, other model.ReadCursor
	for _, c := range cursors {
		if c.UserID == viewer {
			own = c
		} else {
			other = c
		}
	}
	return own, other, nil
}
