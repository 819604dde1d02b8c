package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/model"
)

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

// Upsert stores the latest decision for the ordered pair and appends it to
// swipe_history.
func (r *SwipeRepo) Upsert(ctx context.Context, q querier, rec model.SwipeRecord) (model.SwipeRecord, error) {
	if rec.Actor.Empty() || rec.Target.Empty() || rec.Decision == "" {
		return model.SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if q == nil {
		return model.SwipeRecord{}, fmt.Errorf("transaction is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var out model.SwipeRecord
	var decision string
	err := q.QueryRow(ctx, `
INSERT INTO swipes (
	actor_user_id,
	target_user_id,
	decision,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (actor_user_id, target_user_id) DO UPDATE SET
	decision = EXCLUDED.decision,
	created_at = EXCLUDED.created_at
RETURNING actor_user_id, target_user_id, decision, created_at
`, rec.Actor.String(), rec.Target.String(), string(rec.Decision), rec.CreatedAt.UTC()).Scan(
		&out.Actor,
		&out.Target,
		&decision,
		&out.CreatedAt,
	)
	if err != nil {
		return model.SwipeRecord{}, classify("upsert swipe", err)
	}
	out.Decision = enums.Decision(decision)

	if _, err := q.Exec(ctx, `
INSERT INTO swipe_history (
	actor_user_id,
	target_user_id,
	decision,
	created_at
) VALUES ($1, $2, $3, $4)
`, out.Actor.String(), out.Target.String(), decision, out.CreatedAt); err != nil {
		return model.SwipeRecord{}, classify("append swipe history", err)
	}

	return out, nil
}

func (r *SwipeRepo) Get(ctx context.Context, q querier, actor, target model.UserID) (model.SwipeRecord, error) {
	if q == nil {
		q = r.pool
	}

	var rec model.SwipeRecord
	var decision string
	err := q.QueryRow(ctx, `
SELECT actor_user_id, target_user_id, decision, created_at
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = $2
`, actor.String(), target.String()).Scan(&rec.Actor, &rec.Target, &decision, &rec.CreatedAt)
	if err != nil {
		return model.SwipeRecord{}, classify("get swipe", err)
	}
	rec.Decision = enums.Decision(decision)
	return rec, nil
}

// ListIncomingLikes returns likes toward target that target has not answered.
func (r *SwipeRepo) ListIncomingLikes(ctx context.Context, target model.UserID, limit int) ([]model.SwipeRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT s.actor_user_id, s.target_user_id, s.decision, s.created_at
FROM swipes s
WHERE
	s.target_user_id = $1
	AND s.decision IN ('like', 'superlike')
	AND NOT EXISTS (
		SELECT 1
		FROM swipes back
		WHERE back.actor_user_id = s.target_user_id
			AND back.target_user_id = s.actor_user_id
	)
ORDER BY s.created_at DESC, s.actor_user_id
LIMIT $2
`, target.String(), limit)
	if err != nil {
		return nil, classify("list incoming likes", err)
	}
	defer rows.Close()

	items := make([]model.SwipeRecord, 0, limit)
	for rows.Next() {
		var rec model.SwipeRecord
		var decision string
		if err := rows.Scan(&rec.Actor, &rec.Target, &decision, &rec.CreatedAt); err != nil {
			return nil, classify("scan incoming like", err)
		}
		rec.Decision = enums.Decision(decision)
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate incoming likes", err)
	}

	return items, nil
}

// PruneHistory drops swipe_history rows older than cutoff. The current
// decision per pair in swipes is never touched.
func (r *SwipeRepo) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM swipe_history WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, classify("prune swipe history", err)
	}
	return tag.RowsAffected(), nil
}
