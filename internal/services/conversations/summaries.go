package conversations

import (
	"context"
	"errors"
	"fmt"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/pkg/retry"
	"github.com/relun/backend/internal/repo"
)

type Summary struct {
	Match       model.Match
	LastMessage *model.Message
	Unread      uint64
}

// Summaries lists the user's matches with the latest message and the number
// of messages after the user's read watermark.
func (s *Service) Summaries(ctx context.Context, userID model.UserID, status enums.MatchStatus, limit int) ([]Summary, error) {
	if userID.Empty() {
		return nil, errs.ErrValidation
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unsupported match status", errs.ErrValidation)
	}
	if s.store == nil {
		return nil, fmt.Errorf("conversation store is nil")
	}
	if limit <= 0 {
		limit = s.cfg.PageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	var matches []model.Match
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		matches, err = s.store.ListMatches(ctx, repo.MatchFilter{UserID: userID, Status: status, Limit: limit})
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]Summary, 0, len(matches))
	for _, m := range matches {
		summary := Summary{Match: m}

		if m.LastSeq > 0 {
			var last model.Message
			err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
				var err error
				last, err = s.store.LastMessage(ctx, m.ID)
				return err
			})
			switch {
			case err == nil:
				summary.LastMessage = &last
			case !errors.Is(err, errs.ErrNotFound):
				return nil, err
			}

			own, _, err := s.cursorsFor(ctx, m.ID, userID)
			if err != nil {
				return nil, err
			}
			if m.LastSeq > own.ReadSeq {
				summary.Unread = m.LastSeq - own.ReadSeq
			}
		}

		items = append(items, summary)
	}
	return items, nil
}
