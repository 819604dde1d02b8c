package matches

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/pkg/retry"
	"github.com/relun/backend/internal/repo"
	"github.com/relun/backend/internal/repo/memory"
	redrepo "github.com/relun/backend/internal/repo/redis"
	"github.com/relun/backend/internal/services/rate"
)

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, ConflictRetries: 1, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func putSwipe(t *testing.T, store *memory.Store, actor, target model.UserID, d enums.Decision) {
	t.Helper()
	key := model.PairKey{UserA: actor, UserB: target}
	if target < actor {
		key = model.PairKey{UserA: target, UserB: actor}
	}
	err := store.InPairTx(context.Background(), key, func(ctx context.Context, tx repo.PairTx) error {
		_, err := tx.UpsertSwipe(ctx, model.SwipeRecord{Actor: actor, Target: target, Decision: d})
		return err
	})
	if err != nil {
		t.Fatalf("put swipe: %v", err)
	}
}

func newMatchedService(t *testing.T) (*Service, *memory.Store, model.Match) {
	t.Helper()
	store := memory.New()
	putSwipe(t, store, "a", "b", enums.DecisionLike)
	putSwipe(t, store, "b", "a", enums.DecisionLike)

	svc := NewService(Dependencies{Store: store}, Config{Retry: fastRetry()})
	m, created, err := svc.CheckAndCreateMatch(context.Background(), model.PairKey{UserA: "a", UserB: "b"})
	if err != nil || !created || m == nil {
		t.Fatalf("create match: m=%v created=%v err=%v", m, created, err)
	}
	return svc, store, *m
}

func TestCheckAndCreateMatchRequiresCanonicalPair(t *testing.T) {
	svc := NewService(Dependencies{Store: memory.New()}, Config{})
	for _, key := range []model.PairKey{
		{UserA: "b", UserB: "a"},
		{UserA: "a", UserB: "a"},
		{UserA: "", UserB: "a"},
	} {
		if _, _, err := svc.CheckAndCreateMatch(context.Background(), key); !errors.Is(err, errs.ErrInvalidPair) {
			t.Fatalf("expected invalid pair for %+v, got %v", key, err)
		}
	}
}

func TestCheckAndCreateMatchIsIdempotent(t *testing.T) {
	svc, _, m := newMatchedService(t)

	again, created, err := svc.CheckAndCreateMatch(context.Background(), m.Pair())
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if created || again == nil || again.ID != m.ID {
		t.Fatalf("expected existing match, got %+v created=%v", again, created)
	}
}

func TestConcurrentChecksCreateOneMatch(t *testing.T) {
	store := memory.New()
	putSwipe(t, store, "a", "b", enums.DecisionLike)
	putSwipe(t, store, "b", "a", enums.DecisionSuperLike)
	svc := NewService(Dependencies{Store: store}, Config{Retry: fastRetry()})

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	ids := map[string]struct{}{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, ok, err := svc.CheckAndCreateMatch(context.Background(), model.PairKey{UserA: "a", UserB: "b"})
			if err != nil {
				t.Errorf("check: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[m.ID] = struct{}{}
		}()
	}
	wg.Wait()

	if created != 1 || len(ids) != 1 {
		t.Fatalf("expected one creator and one id, got created=%d ids=%d", created, len(ids))
	}
}

func TestUnmatchIsTerminalAndIdempotent(t *testing.T) {
	svc, _, m := newMatchedService(t)
	ctx := context.Background()

	first, err := svc.Unmatch(ctx, m.ID, "a")
	if err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if first.Status != enums.MatchStatusUnmatched || first.UnmatchedBy != "a" || first.UnmatchedAt == nil {
		t.Fatalf("unexpected unmatched match %+v", first)
	}

	second, err := svc.Unmatch(ctx, m.ID, "b")
	if err != nil {
		t.Fatalf("second unmatch: %v", err)
	}
	if second.UnmatchedBy != "a" || !second.UnmatchedAt.Equal(*first.UnmatchedAt) {
		t.Fatalf("repeat unmatch must not change the record, got %+v", second)
	}

	again, created, err := svc.CheckAndCreateMatch(ctx, m.Pair())
	if err != nil || created || again.Status != enums.MatchStatusUnmatched {
		t.Fatalf("unmatched pair must not rematch: %+v created=%v err=%v", again, created, err)
	}
}

func TestUnmatchErrors(t *testing.T) {
	svc, _, m := newMatchedService(t)
	ctx := context.Background()

	if _, err := svc.Unmatch(ctx, "missing", "a"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Unmatch(ctx, m.ID, "mallory"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	got, err := svc.Get(ctx, m.ID, "b")
	if err != nil || !got.IsActive() {
		t.Fatalf("forbidden unmatch must not change the match: %+v err=%v", got, err)
	}
}

func TestBlockEndsMatchAndRecordsBlock(t *testing.T) {
	svc, store, m := newMatchedService(t)

	got, err := svc.Block(context.Background(), m.ID, "b", " harassment ")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if got.Status != enums.MatchStatusUnmatched || got.UnmatchedBy != "b" {
		t.Fatalf("unexpected match after block %+v", got)
	}

	blocks := store.Blocks()
	if len(blocks) != 1 || blocks[0].Actor != "b" || blocks[0].Target != "a" || blocks[0].Reason != "harassment" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestReport(t *testing.T) {
	svc, store, m := newMatchedService(t)
	ctx := context.Background()

	if _, err := svc.Report(ctx, m.ID, "a", "weird", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Report(ctx, m.ID, "eve", "spam", ""); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	report, err := svc.Report(ctx, m.ID, "a", "SPAM", "sends links")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Target != "b" || report.Reason != enums.ReportReasonSpam || report.ID == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(store.Reports()) != 1 {
		t.Fatalf("expected stored report")
	}
}

func TestReportRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	defer client.Close()

	_, store, m := newMatchedService(t)
	svc := NewService(Dependencies{
		Store:         store,
		ReportLimiter: rate.NewLimiter(redrepo.NewRateRepo(client), "report", nil, rate.Window{Size: 10 * time.Minute, Max: 3}),
	}, Config{Retry: fastRetry()})

	for i := 0; i < 3; i++ {
		if _, err := svc.Report(context.Background(), m.ID, "a", "other", ""); err != nil {
			t.Fatalf("report #%d: %v", i+1, err)
		}
	}
	_, err := svc.Report(context.Background(), m.ID, "a", "other", "")
	if _, ok := errs.IsTooFast(err); !ok {
		t.Fatalf("expected fourth report to be limited, got %v", err)
	}
}

func TestGetAndList(t *testing.T) {
	svc, _, m := newMatchedService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, m.ID, "c"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, "nope", "a"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	items, err := svc.List(ctx, "b", "", 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one match, got %d err=%v", len(items), err)
	}

	if _, err := svc.Unmatch(ctx, m.ID, "a"); err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	active, err := svc.List(ctx, "b", enums.MatchStatusActive, 0)
	if err != nil || len(active) != 0 {
		t.Fatalf("expected no active matches, got %d err=%v", len(active), err)
	}
	if _, err := svc.List(ctx, "b", "paused", 0); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for status, got %v", err)
	}
}
