package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const deleteExpiredRuns = `DELETE FROM load_runs WHERE finished_at < $1`

// RunCleaner removes load run records once they are older than Retention.
type RunCleaner struct {
	DB        *sql.DB
	Retention time.Duration
	Log       *zap.Logger

	now func() time.Time
}

// Clean deletes the runs that finished before the retention cutoff and
// returns how many were removed.
func (c *RunCleaner) Clean(ctx context.Context) (int64, error) {
	now := c.now
	if now == nil {
		now = time.Now
	}
	res, err := c.DB.ExecContext(ctx, deleteExpiredRuns, now().Add(-c.Retention))
	if err != nil {
		return 0, fmt.Errorf("delete expired runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired runs affected: %w", err)
	}
	return n, nil
}

// Run calls Clean every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (c *RunCleaner) Run(ctx context.Context, interval time.Duration) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := c.Clean(ctx)
		switch {
		case err != nil:
			log.Error("failed to clean old load runs", zap.Error(err))
		case n > 0:
			log.Info("cleaned old load runs",
				zap.Int64("removed", n), zap.Duration("retention", c.Retention))
		}
	}
}

// StartRunCleaner runs a RunCleaner in the background until ctx is done.
func StartRunCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	c := &RunCleaner{DB: db, Retention: retention, Log: log}
	go c.Run(ctx, interval)
}
