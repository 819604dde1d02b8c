package rules

import (
	"fmt"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
)

// CanonicalPair orders the two ids lexicographically so both swipe directions
// resolve to the same key.
func CanonicalPair(a, b model.UserID) (model.PairKey, error) {
	if a.Empty() || b.Empty() {
		return model.PairKey{}, fmt.Errorf("%w: user ids are required", errs.ErrInvalidPair)
	}
	if a == b {
		return model.PairKey{}, fmt.Errorf("%w: actor and target are the same user", errs.ErrInvalidPair)
	}
	if b < a {
		a, b = b, a
	}
	return model.PairKey{UserA: a, UserB: b}, nil
}

func IsMutualLike(ab, ba enums.Decision) bool {
	return ab.IsPositive() && ba.IsPositive()
}
