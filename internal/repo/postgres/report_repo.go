package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relun/backend/internal/domain/model"
)

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, q querier, report model.Report) error {
	if report.ID == "" || report.Reporter.Empty() || report.Target.Empty() || report.Reporter == report.Target {
		return fmt.Errorf("invalid report payload")
	}
	if strings.TrimSpace(string(report.Reason)) == "" {
		return fmt.Errorf("report reason is required")
	}
	if q == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := q.Exec(ctx, `
INSERT INTO reports (
	id,
	match_id,
	reporter_user_id,
	target_user_id,
	reason,
	details,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
`, report.ID, report.MatchID, report.Reporter.String(), report.Target.String(),
		string(report.Reason), strings.TrimSpace(report.Details), report.CreatedAt.UTC()); err != nil {
		return classify("create report", err)
	}

	return nil
}
