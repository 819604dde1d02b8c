package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetention = 90 * 24 * time.Hour
	defaultInterval  = 6 * time.Hour
)

type HistoryPruner interface {
	PruneSwipeHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job trims the append-only swipe history. The latest decision per pair is
// kept regardless of age.
type Job struct {
	pruner    HistoryPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewSwipeHistoryJob(pruner HistoryPruner, retention, interval time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.pruner == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	rows, err := j.pruner.PruneSwipeHistory(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune swipe history: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup swipe history completed",
			zap.Int64("deleted", rows),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// Loop runs the job immediately and then on every interval until ctx is
// done. Failed runs are logged and retried on the next tick.
func (j *Job) Loop(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Warn("cleanup job failed", zap.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("cleanup job failed", zap.Error(err))
			}
		}
	}
}
