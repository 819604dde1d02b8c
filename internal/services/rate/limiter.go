package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Window allows at most Max actions per Size. A zero Max disables it.
type Window struct {
	Size time.Duration
	Max  int
}

// Limiter counts one kind of action per user across fixed windows.
type Limiter struct {
	store   WindowStore
	action  string
	windows []Window
	logger  *zap.Logger
}

func NewLimiter(store WindowStore, action string, logger *zap.Logger, windows ...Window) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	active := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Size > 0 && w.Max > 0 {
			active = append(active, w)
		}
	}

	return &Limiter{
		store:   store,
		action:  action,
		windows: active,
		logger:  logger,
	}
}

// Allow counts the action and reports whether it fits every window.
func (l *Limiter) Allow(ctx context.Context, userID model.UserID) (int64, bool, error) {
	if userID.Empty() {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, l.key(w, userID), w.Size)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.Max) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

func (l *Limiter) RetryAfter(ctx context.Context, userID model.UserID) (int64, error) {
	if userID.Empty() {
		return 0, fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, l.key(w, userID))
		if err != nil {
			return 0, err
		}
		if count >= int64(w.Max) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

// Check is the guard used by writers. A nil limiter allows everything, and
// a failing window store lets the action through with a warning.
func (l *Limiter) Check(ctx context.Context, userID model.UserID) error {
	if l == nil || len(l.windows) == 0 {
		return nil
	}

	retryAfter, allowed, err := l.Allow(ctx, userID)
	if err != nil {
		l.logger.Warn("rate limiter degraded",
			zap.String("action", l.action),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil
	}
	if !allowed {
		return errs.TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

func (l *Limiter) key(w Window, userID model.UserID) string {
	return "rate:" + l.action + ":" + strconv.FormatInt(int64(w.Size/time.Second), 10) + "s:" + userID.String()
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
