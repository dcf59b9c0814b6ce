package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/hashloader/internal/models"
)

// PostgresRunRepository records load runs in a PostgreSQL table.
type PostgresRunRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRunRepository creates a PostgresRunRepository with the given database connection.
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{DB: db}
}

// SaveRun inserts a run record.
func (r *PostgresRunRepository) SaveRun(ctx context.Context, run models.Run) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO load_runs (id, format, files, lines, loaded, duplicates, rejected, cracked, left_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, run.ID, run.Format, pq.Array(run.Files), run.Lines, run.Loaded, run.Duplicates,
		run.Rejected, run.Cracked, run.Left, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("SaveRun: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *PostgresRunRepository) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, format, files, lines, loaded, duplicates, rejected, cracked, left_count, started_at, finished_at
		FROM load_runs ORDER BY finished_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Format, pq.Array(&run.Files), &run.Lines, &run.Loaded,
			&run.Duplicates, &run.Rejected, &run.Cracked, &run.Left, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return runs, nil
}
