package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/repo"
)

func seedMatch(t *testing.T, s *Store, id string, a, b model.UserID) model.Match {
	t.Helper()
	m := model.Match{
		ID:        id,
		UserA:     a,
		UserB:     b,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    enums.MatchStatusActive,
	}
	err := s.InPairTx(context.Background(), m.Pair(), func(ctx context.Context, tx repo.PairTx) error {
		return tx.InsertMatch(ctx, m)
	})
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
	return m
}

func TestPairTxRollsBackOnError(t *testing.T) {
	s := New()
	key := model.PairKey{UserA: "a", UserB: "b"}
	boom := errors.New("boom")

	err := s.InPairTx(context.Background(), key, func(ctx context.Context, tx repo.PairTx) error {
		if _, err := tx.UpsertSwipe(ctx, model.SwipeRecord{Actor: "a", Target: "b", Decision: enums.DecisionLike}); err != nil {
			return err
		}
		if _, err := tx.GetSwipe(ctx, "a", "b"); err != nil {
			t.Fatalf("expected swipe visible inside tx, got %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetSwipe(context.Background(), "a", "b"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected swipe discarded, got %v", err)
	}
}

func TestInsertMatchRejectsSecondMatchForPair(t *testing.T) {
	s := New()
	m := seedMatch(t, s, "m1", "a", "b")

	err := s.InPairTx(context.Background(), m.Pair(), func(ctx context.Context, tx repo.PairTx) error {
		dup := m
		dup.ID = "m2"
		return tx.InsertMatch(ctx, dup)
	})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	items, err := s.ListMatches(context.Background(), repo.MatchFilter{UserID: "a"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "m1" {
		t.Fatalf("expected only m1, got %+v", items)
	}
}

func TestMatchTxMissingMatch(t *testing.T) {
	s := New()
	called := false
	err := s.InMatchTx(context.Background(), "missing", func(context.Context, repo.MatchTx, model.Match) error {
		called = true
		return nil
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if called {
		t.Fatalf("callback must not run for a missing match")
	}
}

func TestMatchTxSequencesAreGapless(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "a", "b")

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InMatchTx(context.Background(), "m1", func(ctx context.Context, tx repo.MatchTx, m model.Match) error {
				seq, err := tx.NextSequence(ctx, m.ID)
				if err != nil {
					return err
				}
				return tx.InsertMessage(ctx, model.Message{ID: "x", MatchID: m.ID, Sender: "a", Body: "hi", Sequence: seq})
			})
			if err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, err := s.ListMessages(context.Background(), "m1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != writers {
		t.Fatalf("expected %d messages, got %d", writers, len(msgs))
	}
	for i, msg := range msgs {
		if msg.Sequence != uint64(i+1) {
			t.Fatalf("expected seq %d at %d, got %d", i+1, i, msg.Sequence)
		}
	}
	m, _ := s.GetMatch(context.Background(), "m1")
	if m.LastSeq != writers {
		t.Fatalf("expected last seq %d, got %d", writers, m.LastSeq)
	}
}

func TestFailedAppendDoesNotConsumeSequence(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "a", "b")
	boom := errors.New("boom")

	_ = s.InMatchTx(context.Background(), "m1", func(ctx context.Context, tx repo.MatchTx, m model.Match) error {
		if _, err := tx.NextSequence(ctx, m.ID); err != nil {
			return err
		}
		return boom
	})

	err := s.InMatchTx(context.Background(), "m1", func(ctx context.Context, tx repo.MatchTx, m model.Match) error {
		seq, err := tx.NextSequence(ctx, m.ID)
		if err != nil {
			return err
		}
		if seq != 1 {
			t.Fatalf("expected seq 1 after rollback, got %d", seq)
		}
		return tx.InsertMessage(ctx, model.Message{ID: "x", MatchID: m.ID, Sender: "a", Body: "hi", Sequence: seq})
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestListMessagesAfterAndLimit(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "a", "b")
	for i := 0; i < 5; i++ {
		err := s.InMatchTx(context.Background(), "m1", func(ctx context.Context, tx repo.MatchTx, m model.Match) error {
			seq, _ := tx.NextSequence(ctx, m.ID)
			return tx.InsertMessage(ctx, model.Message{MatchID: m.ID, Sender: "b", Body: "x", Sequence: seq})
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := s.ListMessages(context.Background(), "m1", 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Sequence != 3 || msgs[1].Sequence != 4 {
		t.Fatalf("unexpected page: %+v", msgs)
	}

	last, err := s.LastMessage(context.Background(), "m1")
	if err != nil || last.Sequence != 5 {
		t.Fatalf("expected last seq 5, got %+v err=%v", last, err)
	}
}

func TestAdvanceCursorIsMonotonic(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "a", "b")
	ctx := context.Background()

	c, err := s.AdvanceCursor(ctx, model.ReadCursor{MatchID: "m1", UserID: "a", ReadSeq: 4})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if c.ReadSeq != 4 || c.DeliveredSeq != 4 {
		t.Fatalf("expected read and delivered at 4, got %+v", c)
	}

	c, err = s.AdvanceCursor(ctx, model.ReadCursor{MatchID: "m1", UserID: "a", DeliveredSeq: 2, ReadSeq: 1})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if c.ReadSeq != 4 || c.DeliveredSeq != 4 {
		t.Fatalf("cursor moved backwards: %+v", c)
	}

	if _, err := s.AdvanceCursor(ctx, model.ReadCursor{MatchID: "nope", UserID: "a"}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMatchTxAdvanceCursorReturnsMergedCursor(t *testing.T) {
	s := New()
	seedMatch(t, s, "m1", "a", "b")
	ctx := context.Background()

	if _, err := s.AdvanceCursor(ctx, model.ReadCursor{MatchID: "m1", UserID: "b", ReadSeq: 2}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	var first, second model.ReadCursor
	err := s.InMatchTx(ctx, "m1", func(ctx context.Context, tx repo.MatchTx, _ model.Match) error {
		var err error
		first, err = tx.AdvanceCursor(ctx, model.ReadCursor{MatchID: "m1", UserID: "b", DeliveredSeq: 1, ReadSeq: 1})
		if err != nil {
			return err
		}
		second, err = tx.AdvanceCursor(ctx, model.ReadCursor{MatchID: "m1", UserID: "b", DeliveredSeq: 3})
		return err
	})
	if err != nil {
		t.Fatalf("match tx: %v", err)
	}
	if first.ReadSeq != 2 || first.DeliveredSeq != 2 {
		t.Fatalf("expected stored cursor 2/2 to win, got %+v", first)
	}
	if second.ReadSeq != 2 || second.DeliveredSeq != 3 {
		t.Fatalf("expected pending cursor merged to 3/2, got %+v", second)
	}

	cursors, err := s.ListCursors(ctx, "m1")
	if err != nil {
		t.Fatalf("list cursors: %v", err)
	}
	if len(cursors) != 1 || cursors[0].ReadSeq != 2 || cursors[0].DeliveredSeq != 3 {
		t.Fatalf("stored cursor %+v differs from returned %+v", cursors, second)
	}
}

func TestListIncomingLikesSkipsAnswered(t *testing.T) {
	s := New()
	ctx := context.Background()
	put := func(actor, target model.UserID, d enums.Decision) {
		key := model.PairKey{UserA: actor, UserB: target}
		if target < actor {
			key = model.PairKey{UserA: target, UserB: actor}
		}
		err := s.InPairTx(ctx, key, func(ctx context.Context, tx repo.PairTx) error {
			_, err := tx.UpsertSwipe(ctx, model.SwipeRecord{Actor: actor, Target: target, Decision: d})
			return err
		})
		if err != nil {
			t.Fatalf("swipe: %v", err)
		}
	}

	put("b", "a", enums.DecisionLike)
	put("c", "a", enums.DecisionSuperLike)
	put("d", "a", enums.DecisionPass)
	put("a", "c", enums.DecisionPass)

	likes, err := s.ListIncomingLikes(ctx, "a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(likes) != 1 || likes[0].Actor != "b" {
		t.Fatalf("expected only b, got %+v", likes)
	}
}
