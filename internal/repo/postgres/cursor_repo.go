package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/model"
)

type CursorRepo struct {
	pool *pgxpool.Pool
}

func NewCursorRepo(pool *pgxpool.Pool) *CursorRepo {
	return &CursorRepo{pool: pool}
}

// Advance moves the delivered and read watermarks forward, never back.
func (r *CursorRepo) Advance(ctx context.Context, q querier, cursor model.ReadCursor) (model.ReadCursor, error) {
	if cursor.MatchID == "" || cursor.UserID.Empty() {
		return model.ReadCursor{}, fmt.Errorf("invalid cursor payload")
	}
	if q == nil {
		q = r.pool
	}
	if cursor.ReadSeq > cursor.DeliveredSeq {
		cursor.DeliveredSeq = cursor.ReadSeq
	}
	if cursor.UpdatedAt.IsZero() {
		cursor.UpdatedAt = time.Now().UTC()
	}

	var out model.ReadCursor
	var delivered, read int64
	err := q.QueryRow(ctx, `
INSERT INTO read_cursors (
	match_id,
	user_id,
	delivered_seq,
	read_seq,
	updated_at
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (match_id, user_id) DO UPDATE SET
	delivered_seq = GREATEST(read_cursors.delivered_seq, EXCLUDED.delivered_seq),
	read_seq = GREATEST(read_cursors.read_seq, EXCLUDED.read_seq),
	updated_at = EXCLUDED.updated_at
RETURNING match_id, user_id, delivered_seq, read_seq, updated_at
`, cursor.MatchID, cursor.UserID.String(), int64(cursor.DeliveredSeq), int64(cursor.ReadSeq), cursor.UpdatedAt.UTC()).Scan(
		&out.MatchID,
		&out.UserID,
		&delivered,
		&read,
		&out.UpdatedAt,
	)
	if err != nil {
		return model.ReadCursor{}, classify("advance cursor", err)
	}
	out.DeliveredSeq = uint64(delivered)
	out.ReadSeq = uint64(read)
	return out, nil
}

func (r *CursorRepo) List(ctx context.Context, matchID string) ([]model.ReadCursor, error) {
	rows, err := r.pool.Query(ctx, `
SELECT match_id, user_id, delivered_seq, read_seq, updated_at
FROM read_cursors
WHERE match_id = $1
ORDER BY user_id
`, matchID)
	if err != nil {
		return nil, classify("list cursors", err)
	}
	defer rows.Close()

	items := make([]model.ReadCursor, 0, 2)
	for rows.Next() {
		var c model.ReadCursor
		var delivered, read int64
		if err := rows.Scan(&c.MatchID, &c.UserID, &delivered, &read, &c.UpdatedAt); err != nil {
			return nil, classify("scan cursor", err)
		}
		c.DeliveredSeq = uint64(delivered)
		c.ReadSeq = uint64(read)
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate cursors", err)
	}

	return items, nil
}
