package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/repo"
)

// Store is the durable repo.Store. Pair transactions serialize on a
// transaction-scoped advisory lock derived from the pair key. Match
// transactions serialize on the match row lock.
type Store struct {
	pool     *pgxpool.Pool
	swipes   *SwipeRepo
	matches  *MatchRepo
	messages *MessageRepo
	cursors  *CursorRepo
	blocks   *BlockRepo
	reports  *ReportRepo
}

var _ repo.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		swipes:   NewSwipeRepo(pool),
		matches:  NewMatchRepo(pool),
		messages: NewMessageRepo(pool),
		cursors:  NewCursorRepo(pool),
		blocks:   NewBlockRepo(pool),
		reports:  NewReportRepo(pool),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return classify("ping postgres", err)
	}
	return nil
}

func (s *Store) InPairTx(ctx context.Context, key model.PairKey, fn func(context.Context, repo.PairTx) error) error {
	return WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
			return classify("lock pair", err)
		}
		return fn(txCtx, &pairTx{store: s, tx: tx})
	})
}

func (s *Store) InMatchTx(ctx context.Context, matchID string, fn func(context.Context, repo.MatchTx, model.Match) error) error {
	return WithTx(ctx, s.pool, func(txCtx context.Context, tx pgx.Tx) error {
		m, err := s.matches.LockForUpdate(txCtx, tx, matchID)
		if err != nil {
			return err
		}
		return fn(txCtx, &matchTx{store: s, tx: tx}, m)
	})
}

func (s *Store) GetSwipe(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, error) {
	return s.swipes.Get(ctx, nil, actor, target)
}

func (s *Store) ListIncomingLikes(ctx context.Context, target model.UserID, limit int) ([]model.SwipeRecord, error) {
	return s.swipes.ListIncomingLikes(ctx, target, limit)
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (model.Match, error) {
	return s.matches.Get(ctx, nil, matchID)
}

func (s *Store) ListMatches(ctx context.Context, filter repo.MatchFilter) ([]model.Match, error) {
	return s.matches.List(ctx, filter)
}

func (s *Store) ListMessages(ctx context.Context, matchID string, afterSeq uint64, limit int) ([]model.Message, error) {
	return s.messages.ListAfter(ctx, matchID, afterSeq, limit)
}

func (s *Store) LastMessage(ctx context.Context, matchID string) (model.Message, error) {
	return s.messages.Last(ctx, matchID)
}

func (s *Store) ListCursors(ctx context.Context, matchID string) ([]model.ReadCursor, error) {
	if _, err := s.matches.Get(ctx, nil, matchID); err != nil {
		return nil, err
	}
	return s.cursors.List(ctx, matchID)
}

func (s *Store) AdvanceCursor(ctx context.Context, cursor model.ReadCursor) (model.ReadCursor, error) {
	if _, err := s.matches.Get(ctx, nil, cursor.MatchID); err != nil {
		return model.ReadCursor{}, err
	}
	return s.cursors.Advance(ctx, nil, cursor)
}

type pairTx struct {
	store *Store
	tx    pgx.Tx
}

func (t *pairTx) UpsertSwipe(ctx context.Context, rec model.SwipeRecord) (model.SwipeRecord, error) {
	return t.store.swipes.Upsert(ctx, t.tx, rec)
}

func (t *pairTx) GetSwipe(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, error) {
	return t.store.swipes.Get(ctx, t.tx, actor, target)
}

func (t *pairTx) GetMatchByPair(ctx context.Context, key model.PairKey) (model.Match, error) {
	return t.store.matches.GetByPair(ctx, t.tx, key)
}

func (t *pairTx) InsertMatch(ctx context.Context, m model.Match) error {
	return t.store.matches.Insert(ctx, t.tx, m)
}

type matchTx struct {
	store *Store
	tx    pgx.Tx
}

func (t *matchTx) SetMatchStatus(ctx context.Context, matchID string, status enums.MatchStatus, by model.UserID, at time.Time) error {
	return t.store.matches.SetStatus(ctx, t.tx, matchID, status, by, at)
}

func (t *matchTx) NextSequence(ctx context.Context, matchID string) (uint64, error) {
	return t.store.matches.NextSequence(ctx, t.tx, matchID)
}

func (t *matchTx) InsertMessage(ctx context.Context, msg model.Message) error {
	return t.store.messages.Insert(ctx, t.tx, msg)
}

func (t *matchTx) AdvanceCursor(ctx context.Context, cursor model.ReadCursor) (model.ReadCursor, error) {
	return t.store.cursors.Advance(ctx, t.tx, cursor)
}

func (t *matchTx) UpsertBlock(ctx context.Context, block model.Block) error {
	return t.store.blocks.Upsert(ctx, t.tx, block)
}

func (t *matchTx) InsertReport(ctx context.Context, report model.Report) error {
	return t.store.reports.Create(ctx, t.tx, report)
}

func (s *Store) PruneSwipeHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.swipes.PruneHistory(ctx, cutoff)
}
