package swipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/domain/rules"
	"github.com/relun/backend/internal/pkg/retry"
	"github.com/relun/backend/internal/repo"
)

const (
	defaultIncomingLimit    = 50
	defaultMaxIncomingLimit = 200
)

type Store interface {
	repo.PairTxRunner
	GetSwipe(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, error)
	ListIncomingLikes(ctx context.Context, target model.UserID, limit int) ([]model.SwipeRecord, error)
}

type MatchDetector interface {
	CheckAndCreate(ctx context.Context, tx repo.PairTx, key model.PairKey) (*model.Match, bool, error)
}

type Notifier interface {
	OnMatchCreated(m model.Match)
}

type RateGuard interface {
	Check(ctx context.Context, userID model.UserID) error
}

type Config struct {
	Retry            retry.Policy
	IncomingLimit    int
	MaxIncomingLimit int
}

type Dependencies struct {
	Store       Store
	Detector    MatchDetector
	Notifier    Notifier
	RateLimiter RateGuard
	Logger      *zap.Logger
}

type Result struct {
	Swipe        model.SwipeRecord
	Match        *model.Match
	MatchCreated bool
}

type Service struct {
	store       Store
	detector    MatchDetector
	notifier    Notifier
	rateLimiter RateGuard
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.IncomingLimit <= 0 {
		cfg.IncomingLimit = defaultIncomingLimit
	}
	if cfg.MaxIncomingLimit < cfg.IncomingLimit {
		cfg.MaxIncomingLimit = defaultMaxIncomingLimit
	}

	return &Service{
		store:       deps.Store,
		detector:    deps.Detector,
		notifier:    deps.Notifier,
		rateLimiter: deps.RateLimiter,
		logger:      deps.Logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Record stores actor's latest decision about target and, in the same pair
// transaction, asks the detector whether the pair now has a match.
func (s *Service) Record(ctx context.Context, actor, target model.UserID, decision string) (Result, error) {
	key, err := rules.CanonicalPair(actor, target)
	if err != nil {
		return Result{}, err
	}
	parsed, ok := enums.ParseDecision(decision)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", errs.ErrInvalidDecision, decision)
	}
	if s.store == nil || s.detector == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}
	if parsed.IsPositive() && s.rateLimiter != nil {
		if err := s.rateLimiter.Check(ctx, actor); err != nil {
			return Result{}, err
		}
	}

	var result Result
	attempt := 0
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.logger.Warn("retrying swipe",
				zap.String("actor", actor.String()),
				zap.Int("attempt", attempt),
			)
		}
		return s.store.InPairTx(ctx, key, func(txCtx context.Context, tx repo.PairTx) error {
			rec, err := tx.UpsertSwipe(txCtx, model.SwipeRecord{
				Actor:     actor,
				Target:    target,
				Decision:  parsed,
				CreatedAt: s.now().UTC(),
			})
			if err != nil {
				return err
			}

			m, created, err := s.detector.CheckAndCreate(txCtx, tx, key)
			if err != nil {
				return err
			}

			result = Result{Swipe: rec, Match: m, MatchCreated: created}
			return nil
		})
	})
	if err != nil {
		return Result{}, err
	}

	if result.MatchCreated && s.notifier != nil {
		s.notifier.OnMatchCreated(*result.Match)
	}
	return result, nil
}

// Decision returns actor's latest decision about target, if any.
func (s *Service) Decision(ctx context.Context, actor, target model.UserID) (model.SwipeRecord, bool, error) {
	if _, err := rules.CanonicalPair(actor, target); err != nil {
		return model.SwipeRecord{}, false, err
	}
	if s.store == nil {
		return model.SwipeRecord{}, false, fmt.Errorf("swipe store is nil")
	}

	var rec model.SwipeRecord
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		rec, err = s.store.GetSwipe(ctx, actor, target)
		return err
	})
	if errors.Is(err, errs.ErrNotFound) {
		return model.SwipeRecord{}, false, nil
	}
	if err != nil {
		return model.SwipeRecord{}, false, err
	}
	return rec, true, nil
}

// IncomingLikes lists likes toward userID that userID has not answered yet.
func (s *Service) IncomingLikes(ctx context.Context, userID model.UserID, limit int) ([]model.SwipeRecord, error) {
	if userID.Empty() {
		return nil, errs.ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("swipe store is nil")
	}
	if limit <= 0 {
		limit = s.cfg.IncomingLimit
	}
	if limit > s.cfg.MaxIncomingLimit {
		limit = s.cfg.MaxIncomingLimit
	}

	var items []model.SwipeRecord
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		items, err = s.store.ListIncomingLikes(ctx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
