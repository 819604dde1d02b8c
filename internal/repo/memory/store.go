// Package memory is an in-process implementation of repo.Store. Pair and
// match transactions are serialized by per-key locks. Their writes are
// buffered and applied only when the callback succeeds, so a failed
// operation leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/pkg/keylock"
	"github.com/relun/backend/internal/repo"
)

type swipeKey struct {
	actor  model.UserID
	target model.UserID
}

type cursorKey struct {
	matchID string
	userID  model.UserID
}

type Store struct {
	locks *keylock.Locker
	now   func() time.Time

	mu       sync.RWMutex
	swipes   map[swipeKey]model.SwipeRecord
	incoming map[model.UserID]map[model.UserID]struct{}
	matches  map[string]model.Match
	byPair   map[model.PairKey]string
	byUser   map[model.UserID][]string
	messages map[string][]model.Message
	cursors  map[cursorKey]model.ReadCursor
	blocks   map[swipeKey]model.Block
	reports  []model.Report
}

var _ repo.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		locks:    keylock.New(),
		now:      time.Now,
		swipes:   make(map[swipeKey]model.SwipeRecord),
		incoming: make(map[model.UserID]map[model.UserID]struct{}),
		matches:  make(map[string]model.Match),
		byPair:   make(map[model.PairKey]string),
		byUser:   make(map[model.UserID][]string),
		messages: make(map[string][]model.Message),
		cursors:  make(map[cursorKey]model.ReadCursor),
		blocks:   make(map[swipeKey]model.Block),
	}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) InPairTx(ctx context.Context, key model.PairKey, fn func(context.Context, repo.PairTx) error) error {
	unlock, err := s.locks.Lock(ctx, "pair:"+key.String())
	if err != nil {
		return fmt.Errorf("lock pair: %w", err)
	}
	defer unlock()

	tx := &pairTx{store: s, swipes: make(map[swipeKey]model.SwipeRecord)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.commitPair(tx)
	return nil
}

func (s *Store) InMatchTx(ctx context.Context, matchID string, fn func(context.Context, repo.MatchTx, model.Match) error) error {
	unlock, err := s.locks.Lock(ctx, "match:"+matchID)
	if err != nil {
		return fmt.Errorf("lock match: %w", err)
	}
	defer unlock()

	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	tx := &matchTx{store: s, match: m, lastSeq: m.LastSeq}
	if err := fn(ctx, tx, m); err != nil {
		return err
	}
	s.commitMatch(tx)
	return nil
}

func (s *Store) GetSwipe(_ context.Context, actor, target model.UserID) (model.SwipeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.swipes[swipeKey{actor: actor, target: target}]
	if !ok {
		return model.SwipeRecord{}, errs.ErrNotFound
	}
	return rec, nil
}

func (s *Store) ListIncomingLikes(_ context.Context, target model.UserID, limit int) ([]model.SwipeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.SwipeRecord, 0)
	for actor := range s.incoming[target] {
		rec := s.swipes[swipeKey{actor: actor, target: target}]
		if !rec.Decision.IsPositive() {
			continue
		}
		if _, answered := s.swipes[swipeKey{actor: target, target: actor}]; answered {
			continue
		}
		items = append(items, rec)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Actor < items[j].Actor
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) GetMatch(_ context.Context, matchID string) (model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[matchID]
	if !ok {
		return model.Match{}, errs.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMatches(_ context.Context, filter repo.MatchFilter) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Match, 0, len(s.byUser[filter.UserID]))
	for _, id := range s.byUser[filter.UserID] {
		m := s.matches[id]
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		items = append(items, m)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) ListMessages(_ context.Context, matchID string, afterSeq uint64, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[matchID]
	start := sort.Search(len(log), func(i int) bool {
		return log[i].Sequence > afterSeq
	})
	end := len(log)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	items := make([]model.Message, end-start)
	copy(items, log[start:end])
	return items, nil
}

func (s *Store) LastMessage(_ context.Context, matchID string) (model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[matchID]
	if len(log) == 0 {
		return model.Message{}, errs.ErrNotFound
	}
	return log[len(log)-1], nil
}

func (s *Store) ListCursors(_ context.Context, matchID string) ([]model.ReadCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	items := make([]model.ReadCursor, 0, 2)
	for _, userID := range []model.UserID{m.UserA, m.UserB} {
		if c, ok := s.cursors[cursorKey{matchID: matchID, userID: userID}]; ok {
			items = append(items, c)
		}
	}
	return items, nil
}

func (s *Store) AdvanceCursor(_ context.Context, cursor model.ReadCursor) (model.ReadCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[cursor.MatchID]; !ok {
		return model.ReadCursor{}, errs.ErrNotFound
	}
	return s.advanceCursorLocked(cursor), nil
}

// Reports returns a copy of every stored report.
func (s *Store) Reports() []model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Report(nil), s.reports...)
}

// Blocks returns a copy of every stored block.
func (s *Store) Blocks() []model.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Block, 0, len(s.blocks))
	for _, b := range s.blocks {
		items = append(items, b)
	}
	return items
}

func (s *Store) advanceCursorLocked(cursor model.ReadCursor) model.ReadCursor {
	key := cursorKey{matchID: cursor.MatchID, userID: cursor.UserID}
	merged := mergeCursor(s.cursors[key], cursor, s.now())
	s.cursors[key] = merged
	return merged
}

// mergeCursor moves both watermarks of current forward to cursor, never back.
// Read implies delivered.
func mergeCursor(current, cursor model.ReadCursor, now time.Time) model.ReadCursor {
	current.MatchID = cursor.MatchID
	current.UserID = cursor.UserID
	if cursor.ReadSeq > cursor.DeliveredSeq {
		cursor.DeliveredSeq = cursor.ReadSeq
	}
	if cursor.DeliveredSeq > current.DeliveredSeq {
		current.DeliveredSeq = cursor.DeliveredSeq
	}
	if cursor.ReadSeq > current.ReadSeq {
		current.ReadSeq = cursor.ReadSeq
	}
	current.UpdatedAt = cursor.UpdatedAt
	if current.UpdatedAt.IsZero() {
		current.UpdatedAt = now.UTC()
	}
	return current
}

func (s *Store) commitPair(tx *pairTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range tx.swipes {
		s.swipes[key] = rec
		if s.incoming[key.target] == nil {
			s.incoming[key.target] = make(map[model.UserID]struct{})
		}
		s.incoming[key.target][key.actor] = struct{}{}
	}
	if tx.match != nil {
		m := *tx.match
		s.matches[m.ID] = m
		s.byPair[m.Pair()] = m.ID
		s.byUser[m.UserA] = append(s.byUser[m.UserA], m.ID)
		s.byUser[m.UserB] = append(s.byUser[m.UserB], m.ID)
	}
}

func (s *Store) commitMatch(tx *matchTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.matches[tx.match.ID]
	if tx.status != nil {
		m.Status = tx.status.status
		m.UnmatchedBy = tx.status.by
		at := tx.status.at
		m.UnmatchedAt = &at
	}
	m.LastSeq = tx.lastSeq
	s.matches[m.ID] = m

	s.messages[m.ID] = append(s.messages[m.ID], tx.messages...)
	for _, c := range tx.cursors {
		s.advanceCursorLocked(c)
	}
	for _, b := range tx.blocks {
		s.blocks[swipeKey{actor: b.Actor, target: b.Target}] = b
	}
	s.reports = append(s.reports, tx.reports...)
}

type pairTx struct {
	store  *Store
	swipes map[swipeKey]model.SwipeRecord
	match  *model.Match
}

func (t *pairTx) UpsertSwipe(_ context.Context, rec model.SwipeRecord) (model.SwipeRecord, error) {
	if rec.Actor.Empty() || rec.Target.Empty() {
		return model.SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.store.now().UTC()
	}
	t.swipes[swipeKey{actor: rec.Actor, target: rec.Target}] = rec
	return rec, nil
}

func (t *pairTx) GetSwipe(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, error) {
	if rec, ok := t.swipes[swipeKey{actor: actor, target: target}]; ok {
		return rec, nil
	}
	return t.store.GetSwipe(ctx, actor, target)
}

func (t *pairTx) GetMatchByPair(_ context.Context, key model.PairKey) (model.Match, error) {
	if t.match != nil && t.match.Pair() == key {
		return *t.match, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	id, ok := t.store.byPair[key]
	if !ok {
		return model.Match{}, errs.ErrNotFound
	}
	return t.store.matches[id], nil
}

func (t *pairTx) InsertMatch(ctx context.Context, m model.Match) error {
	if _, err := t.GetMatchByPair(ctx, m.Pair()); err == nil {
		return fmt.Errorf("insert match: %w", errs.ErrConflict)
	}
	t.store.mu.RLock()
	_, idTaken := t.store.matches[m.ID]
	t.store.mu.RUnlock()
	if idTaken {
		return fmt.Errorf("insert match id: %w", errs.ErrConflict)
	}
	t.match = &m
	return nil
}

type statusChange struct {
	status enums.MatchStatus
	by     model.UserID
	at     time.Time
}

type matchTx struct {
	store    *Store
	match    model.Match
	lastSeq  uint64
	status   *statusChange
	messages []model.Message
	cursors  []model.ReadCursor
	blocks   []model.Block
	reports  []model.Report
}

func (t *matchTx) SetMatchStatus(_ context.Context, matchID string, status enums.MatchStatus, by model.UserID, at time.Time) error {
	if matchID != t.match.ID {
		return fmt.Errorf("match %s is not locked by this transaction", matchID)
	}
	t.status = &statusChange{status: status, by: by, at: at}
	return nil
}

func (t *matchTx) NextSequence(_ context.Context, matchID string) (uint64, error) {
	if matchID != t.match.ID {
		return 0, fmt.Errorf("match %s is not locked by this transaction", matchID)
	}
	t.lastSeq++
	return t.lastSeq, nil
}

func (t *matchTx) InsertMessage(_ context.Context, msg model.Message) error {
	if msg.MatchID != t.match.ID {
		return fmt.Errorf("match %s is not locked by this transaction", msg.MatchID)
	}
	if msg.Sequence != t.match.LastSeq+uint64(len(t.messages))+1 {
		return fmt.Errorf("insert message seq %d: %w", msg.Sequence, errs.ErrConflict)
	}
	t.messages = append(t.messages, msg)
	return nil
}

// AdvanceCursor returns the cursor as it will read after commit. A cursor
// already pending in this transaction takes precedence over the stored one.
func (t *matchTx) AdvanceCursor(_ context.Context, cursor model.ReadCursor) (model.ReadCursor, error) {
	if cursor.MatchID == "" || cursor.UserID.Empty() {
		return model.ReadCursor{}, fmt.Errorf("invalid cursor payload")
	}
	for i, pending := range t.cursors {
		if pending.UserID == cursor.UserID && pending.MatchID == cursor.MatchID {
			t.cursors[i] = mergeCursor(pending, cursor, t.store.now())
			return t.cursors[i], nil
		}
	}

	t.store.mu.RLock()
	current := t.store.cursors[cursorKey{matchID: cursor.MatchID, userID: cursor.UserID}]
	t.store.mu.RUnlock()

	merged := mergeCursor(current, cursor, t.store.now())
	t.cursors = append(t.cursors, merged)
	return merged, nil
}

func (t *matchTx) UpsertBlock(_ context.Context, block model.Block) error {
	t.blocks = append(t.blocks, block)
	return nil
}

func (t *matchTx) InsertReport(_ context.Context, report model.Report) error {
	t.reports = append(t.reports, report)
	return nil
}
