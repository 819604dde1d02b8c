package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/relun/backend/internal/domain/errs"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: errs.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: errs.ErrConflict},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: errs.ErrConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: errs.ErrConflict},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, want: errs.ErrUnavailable},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300"}, want: errs.ErrUnavailable},
		{name: "admin shutdown", err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "57P01"}), want: errs.ErrUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: errs.ErrUnavailable},
		{name: "wrapped deadline", err: fmt.Errorf("query matches: %w", context.DeadlineExceeded), want: errs.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("op", tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if !errors.Is(got, tc.err) && tc.err != pgx.ErrNoRows {
				t.Fatalf("expected original error kept in chain, got %v", got)
			}
		})
	}
}

func TestClassifyLeavesOtherErrorsUnmarked(t *testing.T) {
	got := classify("op", &pgconn.PgError{Code: "23502"})
	for _, sentinel := range []error{errs.ErrConflict, errs.ErrUnavailable, errs.ErrNotFound} {
		if errors.Is(got, sentinel) {
			t.Fatalf("not-null violation must not be classified as %v", sentinel)
		}
	}

	if classify("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"swipes", "matches", "messages", "read_cursors", "blocks", "reports"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("schema missing table %s", table)
		}
	}
}
