package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/errs"
	"github.com/relun/backend/internal/domain/model"
	"github.com/relun/backend/internal/repo"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

const matchColumns = `id, user_a_id, user_b_id, status, COALESCE(unmatched_by, ''), unmatched_at, last_seq, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (model.Match, error) {
	var m model.Match
	var status string
	var lastSeq int64
	if err := row.Scan(
		&m.ID,
		&m.UserA,
		&m.UserB,
		&status,
		&m.UnmatchedBy,
		&m.UnmatchedAt,
		&lastSeq,
		&m.CreatedAt,
	); err != nil {
		return model.Match{}, err
	}
	m.Status = enums.MatchStatus(status)
	m.LastSeq = uint64(lastSeq)
	return m, nil
}

// Insert relies on the (user_a_id, user_b_id) unique key. A pair that already
// has a match reports errs.ErrConflict without aborting the transaction.
func (r *MatchRepo) Insert(ctx context.Context, q querier, m model.Match) error {
	if m.ID == "" || m.UserA.Empty() || m.UserB.Empty() {
		return fmt.Errorf("invalid match payload")
	}
	if q == nil {
		return fmt.Errorf("transaction is required")
	}

	var id string
	err := q.QueryRow(ctx, `
INSERT INTO matches (
	id,
	user_a_id,
	user_b_id,
	status,
	last_seq,
	created_at
) VALUES ($1, $2, $3, $4, 0, $5)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING id
`, m.ID, m.UserA.String(), m.UserB.String(), string(m.Status), m.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		err = classify("insert match", err)
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("insert match: %w", errs.ErrConflict)
		}
		return err
	}

	return nil
}

func (r *MatchRepo) GetByPair(ctx context.Context, q querier, key model.PairKey) (model.Match, error) {
	if q == nil {
		q = r.pool
	}

	m, err := scanMatch(q.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, key.UserA.String(), key.UserB.String()))
	if err != nil {
		return model.Match{}, classify("get match by pair", err)
	}
	return m, nil
}

func (r *MatchRepo) Get(ctx context.Context, q querier, matchID string) (model.Match, error) {
	if q == nil {
		q = r.pool
	}

	m, err := scanMatch(q.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE id = $1
`, matchID))
	if err != nil {
		return model.Match{}, classify("get match", err)
	}
	return m, nil
}

// LockForUpdate reads the match row and holds its row lock until the
// transaction ends.
func (r *MatchRepo) LockForUpdate(ctx context.Context, q querier, matchID string) (model.Match, error) {
	if q == nil {
		return model.Match{}, fmt.Errorf("transaction is required")
	}

	m, err := scanMatch(q.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE id = $1
FOR UPDATE
`, matchID))
	if err != nil {
		return model.Match{}, classify("lock match", err)
	}
	return m, nil
}

func (r *MatchRepo) SetStatus(ctx context.Context, q querier, matchID string, status enums.MatchStatus, by model.UserID, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid match status %q", status)
	}
	if q == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := q.Exec(ctx, `
UPDATE matches
SET
	status = $2,
	unmatched_by = NULLIF($3, ''),
	unmatched_at = $4
WHERE id = $1
`, matchID, string(status), by.String(), at.UTC())
	if err != nil {
		return classify("set match status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set match status: %w", errs.ErrNotFound)
	}
	return nil
}

// NextSequence bumps the per-match counter. Callers hold the row lock, so
// the returned value is unique and contiguous within the match.
func (r *MatchRepo) NextSequence(ctx context.Context, q querier, matchID string) (uint64, error) {
	if q == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var seq int64
	err := q.QueryRow(ctx, `
UPDATE matches
SET last_seq = last_seq + 1
WHERE id = $1
RETURNING last_seq
`, matchID).Scan(&seq)
	if err != nil {
		return 0, classify("next message sequence", err)
	}
	return uint64(seq), nil
}

func (r *MatchRepo) List(ctx context.Context, filter repo.MatchFilter) ([]model.Match, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE
	(user_a_id = $1 OR user_b_id = $1)
	AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3
`, filter.UserID.String(), string(filter.Status), limit)
	if err != nil {
		return nil, classify("list matches", err)
	}
	defer rows.Close()

	items := make([]model.Match, 0, limit)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, classify("scan match", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate matches", err)
	}

	return items, nil
}
