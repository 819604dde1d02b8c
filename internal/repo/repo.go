// Package repo declares the storage ports shared by the services. Lookups
// that miss return errs.ErrNotFound, unique or serialization violations
// return errs.ErrConflict and transient backend failures return
// errs.ErrUnavailable, so callers can classify errors without knowing the backend.
package repo

import (
	"context"
	"time"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/model"
)

// PairTx is the unit of work for everything keyed by a canonical pair.
// Implementations hold an exclusive per-pair lock for its whole lifetime.
type PairTx interface {
	UpsertSwipe(ctx context.Context, rec model.SwipeRecord) (model.SwipeRecord, error)
	GetSwipe(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, error)
	GetMatchByPair(ctx context.Context, key model.PairKey) (model.Match, error)
	InsertMatch(ctx context.Context, m model.Match) error
}

// MatchTx is the unit of work for a single match row, which stays locked
// until the transaction ends.
type MatchTx interface {
	SetMatchStatus(ctx context.Context, matchID string, status enums.MatchStatus, by model.UserID, at time.Time) error
	NextSequence(ctx context.Context, matchID string) (uint64, error)
	InsertMessage(ctx context.Context, msg model.Message) error
	AdvanceCursor(ctx context.Context, cursor model.ReadCursor) (model.ReadCursor, error)
	UpsertBlock(ctx context.Context, block model.Block) error
	InsertReport(ctx context.Context, report model.Report) error
}

type PairTxRunner interface {
	InPairTx(ctx context.Context, key model.PairKey, fn func(ctx context.Context, tx PairTx) error) error
}

type MatchTxRunner interface {
	InMatchTx(ctx context.Context, matchID string, fn func(ctx context.Context, tx MatchTx, m model.Match) error) error
}

type MatchFilter struct {
	UserID model.UserID
	Status enums.MatchStatus
	Limit  int
}

type Store interface {
	PairTxRunner
	MatchTxRunner

	GetSwipe(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, error)
	ListIncomingLikes(ctx context.Context, target model.UserID, limit int) ([]model.SwipeRecord, error)
	GetMatch(ctx context.Context, matchID string) (model.Match, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]model.Match, error)
	ListMessages(ctx context.Context, matchID string, afterSeq uint64, limit int) ([]model.Message, error)
	LastMessage(ctx context.Context, matchID string) (model.Message, error)
	ListCursors(ctx context.Context, matchID string) ([]model.ReadCursor, error)
	AdvanceCursor(ctx context.Context, cursor model.ReadCursor) (model.ReadCursor, error)
	Ping(ctx context.Context) error
}
