package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/relun/backend/internal/domain/errs"
	redrepo "github.com/relun/backend/internal/repo/redis"
)

func TestLimiterBlocksOnShortWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), "swipe", nil,
		Window{Size: time.Minute, Max: 100},
		Window{Size: 10 * time.Second, Max: 2},
	)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, "u-42")
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, "u-42")
	if err != nil {
		t.Fatalf("allow #3: %v", err)
	}
	if allowed || retryAfter <= 0 {
		t.Fatalf("expected block with retry_after, got allowed=%v retry_after=%d", allowed, retryAfter)
	}

	currentRetry, err := limiter.RetryAfter(ctx, "u-42")
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if currentRetry <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", currentRetry)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, "u-42")
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestCheckReturnsTooFast(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	defer func() { _ = client.Close() }()

	limiter := NewLimiter(redrepo.NewRateRepo(client), "message", nil, Window{Size: time.Minute, Max: 1})
	ctx := context.Background()

	if err := limiter.Check(ctx, "u-1"); err != nil {
		t.Fatalf("first check: %v", err)
	}
	err := limiter.Check(ctx, "u-1")
	tooFast, ok := errs.IsTooFast(err)
	if !ok {
		t.Fatalf("expected too fast, got %v", err)
	}
	if tooFast.RetryAfterSec <= 0 || tooFast.RetryAfterSec > 60 {
		t.Fatalf("unexpected retry_after %d", tooFast.RetryAfterSec)
	}

	if err := limiter.Check(ctx, "u-2"); err != nil {
		t.Fatalf("other user must have own window: %v", err)
	}
}

type failingStore struct{}

func (failingStore) IncrementWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func (failingStore) WindowState(context.Context, string) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestCheckFailsOpen(t *testing.T) {
	limiter := NewLimiter(failingStore{}, "swipe", nil, Window{Size: time.Minute, Max: 1})
	for i := 0; i < 3; i++ {
		if err := limiter.Check(context.Background(), "u-1"); err != nil {
			t.Fatalf("expected fail-open, got %v", err)
		}
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Check(context.Background(), "u-1"); err != nil {
		t.Fatalf("nil limiter must allow, got %v", err)
	}
}

func TestCeilSeconds(t *testing.T) {
	cases := map[time.Duration]int64{
		0:                       0,
		time.Millisecond:        1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
	}
	for in, want := range cases {
		if got := ceilSeconds(in); got != want {
			t.Fatalf("ceilSeconds(%s) = %d, want %d", in, got, want)
		}
	}
}
