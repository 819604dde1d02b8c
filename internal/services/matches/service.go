package matches

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

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
	defaultListLimit      = 50
	defaultMaxListLimit   = 200
	maxReportDetailsRunes = 1000
)

type Store interface {
	repo.PairTxRunner
	repo.MatchTxRunner
	GetMatch(ctx context.Context, matchID string) (model.Match, error)
	ListMatches(ctx context.Context, filter repo.MatchFilter) ([]model.Match, error)
}

type Notifier interface {
	OnMatchCreated(m model.Match)
}

type RateGuard interface {
	Check(ctx context.Context, userID model.UserID) error
}

type Config struct {
	Retry        retry.Policy
	ListLimit    int
	MaxListLimit int
}

type Dependencies struct {
	Store         Store
	Detector      *Detector
	Notifier      Notifier
	ReportLimiter RateGuard
	Logger        *zap.Logger
}

type Service struct {
	store         Store
	detector      *Detector
	notifier      Notifier
	reportLimiter RateGuard
	logger        *zap.Logger
	cfg           Config
	now           func() time.Time
	newID         func() string
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Detector == nil {
		deps.Detector = NewDetector()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = defaultListLimit
	}
	if cfg.MaxListLimit < cfg.ListLimit {
		cfg.MaxListLimit = defaultMaxListLimit
	}

	return &Service{
		store:         deps.Store,
		detector:      deps.Detector,
		notifier:      deps.Notifier,
		reportLimiter: deps.ReportLimiter,
		logger:        deps.Logger,
		cfg:           cfg,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *Service) Detector() *Detector {
	return s.detector
}

// CheckAndCreateMatch runs the detector in its own pair transaction.
func (s *Service) CheckAndCreateMatch(ctx context.Context, key model.PairKey) (*model.Match, bool, error) {
	canonical, err := rules.CanonicalPair(key.UserA, key.UserB)
	if err != nil {
		return nil, false, err
	}
	if canonical != key {
		return nil, false, fmt.Errorf("%w: pair is not in canonical order", errs.ErrInvalidPair)
	}
	if s.store == nil {
		return nil, false, fmt.Errorf("match store is nil")
	}

	var (
		match   *model.Match
		created bool
	)
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.store.InPairTx(ctx, key, func(txCtx context.Context, tx repo.PairTx) error {
			m, ok, err := s.detector.CheckAndCreate(txCtx, tx, key)
			if err != nil {
				return err
			}
			match, created = m, ok
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}

	if created && s.notifier != nil {
		s.notifier.OnMatchCreated(*match)
	}
	return match, created, nil
}

// Unmatch moves an active match to Unmatched. Repeating it is a no-op that
// keeps the original unmatched_by and unmatched_at.
func (s *Service) Unmatch(ctx context.Context, matchID string, requestor model.UserID) (model.Match, error) {
	return s.endMatch(ctx, matchID, requestor, nil)
}

// Block ends the match like Unmatch and records that requestor blocked the
// counterpart.
func (s *Service) Block(ctx context.Context, matchID string, requestor model.UserID, reason string) (model.Match, error) {
	reason = strings.TrimSpace(reason)
	return s.endMatch(ctx, matchID, requestor, func(ctx context.Context, tx repo.MatchTx, m model.Match, at time.Time) error {
		return tx.UpsertBlock(ctx, model.Block{
			Actor:     requestor,
			Target:    m.Counterpart(requestor),
			MatchID:   m.ID,
			Reason:    reason,
			CreatedAt: at,
		})
	})
}

func (s *Service) endMatch(
	ctx context.Context,
	matchID string,
	requestor model.UserID,
	also func(ctx context.Context, tx repo.MatchTx, m model.Match, at time.Time) error,
) (model.Match, error) {
	if strings.TrimSpace(matchID) == "" || requestor.Empty() {
		return model.Match{}, errs.ErrValidation
	}
	if s.store == nil {
		return model.Match{}, fmt.Errorf("match store is nil")
	}

	var result model.Match
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.store.InMatchTx(ctx, matchID, func(txCtx context.Context, tx repo.MatchTx, m model.Match) error {
			if !m.HasParticipant(requestor) {
				return errs.ErrForbidden
			}

			now := s.now().UTC()
			if m.IsActive() {
				if err := tx.SetMatchStatus(txCtx, m.ID, enums.MatchStatusUnmatched, requestor, now); err != nil {
					return err
				}
				m.Status = enums.MatchStatusUnmatched
				m.UnmatchedBy = requestor
				m.UnmatchedAt = &now
			}
			if also != nil {
				if err := also(txCtx, tx, m, now); err != nil {
					return err
				}
			}

			result = m
			return nil
		})
	})
	if err != nil {
		return model.Match{}, err
	}
	return result, nil
}

func (s *Service) Report(ctx context.Context, matchID string, reporter model.UserID, reason, details string) (model.Report, error) {
	if strings.TrimSpace(matchID) == "" || reporter.Empty() {
		return model.Report{}, errs.ErrValidation
	}
	parsed, ok := enums.ParseReportReason(reason)
	if !ok {
		return model.Report{}, fmt.Errorf("%w: unsupported report reason", errs.ErrValidation)
	}
	details = strings.TrimSpace(details)
	if utf8.RuneCountInString(details) > maxReportDetailsRunes {
		return model.Report{}, fmt.Errorf("%w: report details are too long", errs.ErrValidation)
	}
	if s.store == nil {
		return model.Report{}, fmt.Errorf("match store is nil")
	}
	if s.reportLimiter != nil {
		if err := s.reportLimiter.Check(ctx, reporter); err != nil {
			return model.Report{}, err
		}
	}

	report := model.Report{
		ID:       s.newID(),
		MatchID:  matchID,
		Reporter: reporter,
		Reason:   parsed,
		Details:  details,
	}
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.store.InMatchTx(ctx, matchID, func(txCtx context.Context, tx repo.MatchTx, m model.Match) error {
			if !m.HasParticipant(reporter) {
				return errs.ErrForbidden
			}
			report.Target = m.Counterpart(reporter)
			report.CreatedAt = s.now().UTC()
			return tx.InsertReport(txCtx, report)
		})
	})
	if err != nil {
		return model.Report{}, err
	}

	s.logger.Info("match reported",
		zap.String("match_id", matchID),
		zap.String("reason", string(parsed)),
	)
	return report, nil
}

func (s *Service) Get(ctx context.Context, matchID string, viewer model.UserID) (model.Match, error) {
	if strings.TrimSpace(matchID) == "" || viewer.Empty() {
		return model.Match{}, errs.ErrValidation
	}
	if s.store == nil {
		return model.Match{}, fmt.Errorf("match store is nil")
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

// List returns the user's matches, newest first. An empty status lists all.
func (s *Service) List(ctx context.Context, userID model.UserID, status enums.MatchStatus, limit int) ([]model.Match, error) {
	if userID.Empty() {
		return nil, errs.ErrValidation
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unsupported match status", errs.ErrValidation)
	}
	if s.store == nil {
		return nil, fmt.Errorf("match store is nil")
	}
	if limit <= 0 {
		limit = s.cfg.ListLimit
	}
	if limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}

	var items []model.Match
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		items, err = s.store.ListMatches(ctx, repo.MatchFilter{UserID: userID, Status: status, Limit: limit})
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
