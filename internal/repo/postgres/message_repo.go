package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Insert(ctx context.Context, q querier, msg model.Message) error {
	if msg.ID == "" || msg.MatchID == "" || msg.Sender.Empty() || msg.Sequence == 0 {
		return fmt.Errorf("invalid message payload")
	}
	if q == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := q.Exec(ctx, `
INSERT INTO messages (
	id,
	match_id,
	seq,
	sender_id,
	body,
	sent_at
) VALUES ($1, $2, $3, $4, $5, $6)
`, msg.ID, msg.MatchID, int64(msg.Sequence), msg.Sender.String(), msg.Body, msg.SentAt.UTC()); err != nil {
		return classify("insert message", err)
	}

	return nil
}

func (r *MessageRepo) ListAfter(ctx context.Context, matchID string, afterSeq uint64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, match_id, seq, sender_id, body, sent_at
FROM messages
WHERE match_id = $1 AND seq > $2
ORDER BY seq
LIMIT $3
`, matchID, int64(afterSeq), limit)
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, classify("scan message", err)
		}
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate messages", err)
	}

	return items, nil
}

func (r *MessageRepo) Last(ctx context.Context, matchID string) (model.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, `
SELECT id, match_id, seq, sender_id, body, sent_at
FROM messages
WHERE match_id = $1
ORDER BY seq DESC
LIMIT 1
`, matchID))
	if err != nil {
		return model.Message{}, classify("last message", err)
	}
	return msg, nil
}

func scanMessage(row rowScanner) (model.Message, error) {
	var msg model.Message
	var seq int64
	if err := row.Scan(&msg.ID, &msg.MatchID, &seq, &msg.Sender, &msg.Body, &msg.SentAt); err != nil {
		return model.Message{}, err
	}
	msg.Sequence = uint64(seq)
	return msg, nil
}
