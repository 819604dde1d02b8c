package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/domain/rules"
	"github.com/relun/backend/internal/repo"
)

// Detector decides whether a pair has earned a match. It must run inside a
// pair transaction so that the swipe reads and the insert see one state.
type Detector struct {
	now   func() time.Time
	newID func() string
}

func NewDetector() *Detector {
	return &Detector{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// CheckAndCreate returns the pair's match, if any, and whether this call
// created it. An existing match is returned unchanged whatever its status,
// so an unmatched pair is never matched again.
func (d *Detector) CheckAndCreate(ctx context.Context, tx repo.PairTx, key model.PairKey) (*model.Match, bool, error) {
	existing, err := tx.GetMatchByPair(ctx, key)
	switch {
	case err == nil:
		return &existing, false, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, false, err
	}

	ab, err := decisionOf(ctx, tx, key.UserA, key.UserB)
	if err != nil {
		return nil, false, err
	}
	ba, err := decisionOf(ctx, tx, key.UserB, key.UserA)
	if err != nil {
		return nil, false, err
	}
	if !rules.IsMutualLike(ab, ba) {
		return nil, false, nil
	}

	m := model.Match{
		ID:        d.newID(),
		UserA:     key.UserA,
		UserB:     key.UserB,
		CreatedAt: d.now().UTC(),
		Status:    enums.MatchStatusActive,
	}
	if err := tx.InsertMatch(ctx, m); err != nil {
		if !errors.Is(err, errs.ErrConflict) {
			return nil, false, err
		}
		// another writer won the unique key
		winner, getErr := tx.GetMatchByPair(ctx, key)
		if getErr != nil {
			return nil, false, fmt.Errorf("reload raced match: %w", getErr)
		}
		return &winner, false, nil
	}

	return &m, true, nil
}

func decisionOf(ctx context.Context, tx repo.PairTx, actor, target model.UserID) (enums.Decision, error) {
	rec, err := tx.GetSwipe(ctx, actor, target)
	if errors.Is(err, errs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.Decision, nil
}
