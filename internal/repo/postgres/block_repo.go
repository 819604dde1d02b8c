package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/model"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Upsert(ctx context.Context, q querier, block model.Block) error {
	if block.Actor.Empty() || block.Target.Empty() || block.Actor == block.Target {
		return fmt.Errorf("invalid block payload")
	}
	if q == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := q.Exec(ctx, `
INSERT INTO blocks (
	actor_user_id,
	target_user_id,
	match_id,
	reason,
	created_at
) VALUES ($1, $2, NULLIF($3, ''), $4, $5)
ON CONFLICT (actor_user_id, target_user_id) DO UPDATE SET
	reason = EXCLUDED.reason
`, block.Actor.String(), block.Target.String(), block.MatchID, strings.TrimSpace(block.Reason), block.CreatedAt.UTC()); err != nil {
		return classify("upsert block", err)
	}

	return nil
}
