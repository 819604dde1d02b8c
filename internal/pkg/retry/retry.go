package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/relun/backend/internal/domain/errs"
)

const (
	DefaultMaxAttempts     = 3
	DefaultConflictRetries = 1
	DefaultInitialInterval = 50 * time.Millisecond
	DefaultMaxInterval     = time.Second
)

// Policy bounds how a storage operation is repeated. Transient failures
// (errs.ErrUnavailable) get up to MaxAttempts tries with exponential backoff,
// write races (errs.ErrConflict) get ConflictRetries extra tries. Any other
// error is returned immediately.
type Policy struct {
	MaxAttempts     int
	ConflictRetries int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		ConflictRetries: DefaultConflictRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.ConflictRetries < 0 {
		p.ConflictRetries = 0
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultInitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// Do runs op until it succeeds, fails permanently or the policy is exhausted.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	p = p.normalized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0

	attempts := 0
	conflicts := 0
	return backoff.Retry(func() error {
		attempts++
		err := op(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errs.ErrConflict):
			conflicts++
			if conflicts > p.ConflictRetries {
				return backoff.Permanent(err)
			}
			return err
		case errors.Is(err, errs.ErrUnavailable):
			if attempts >= p.MaxAttempts {
				return backoff.Permanent(err)
			}
			return err
		default:
			return backoff.Permanent(err)
		}
	}, backoff.WithContext(b, ctx))
}
