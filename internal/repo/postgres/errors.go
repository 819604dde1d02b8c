package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/relun/backend/internal/domain/errs"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeTooManyConnections   = "53300"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
)

// classify wraps a driver error with the storage sentinel that describes it.
// Errors that already carry a domain sentinel pass through with context only.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation,
			pgErr.Code == codeSerializationFailure,
			pgErr.Code == codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %w", op, errs.ErrConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == codeTooManyConnections,
			pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeCrashShutdown,
			pgErr.Code == codeCannotConnectNow:
			return fmt.Errorf("%s: %w: %w", op, errs.ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
