// Package repository provides PostgreSQL persistence for cracked pot
// entries and load run records.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/hashloader/internal/models"
)

// PostgresPotRepository stores pot entries in a PostgreSQL table.
type PostgresPotRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresPotRepository creates a PostgresPotRepository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresPotRepository(db *sql.DB) *PostgresPotRepository {
	return &PostgresPotRepository{DB: db}
}

// CrackedByFormat returns the ciphertexts recorded for any of the given
// format labels.
//
//	ctx:    context for cancellation and deadlines
//	labels: format labels to match
//
// Returns the ciphertexts or an error if the query or scanning fails.
func (r *PostgresPotRepository) CrackedByFormat(ctx context.Context, labels []string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT ciphertext FROM pot WHERE format = ANY($1)
	`, pq.Array(labels))
	if err != nil {
		return nil, fmt.Errorf("CrackedByFormat: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ct string
		if err := rows.Scan(&ct); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Store inserts entries within a transaction. Ciphertexts already present
// are left untouched. It returns how many entries were new.
func (r *PostgresPotRepository) Store(ctx context.Context, entries []models.PotEntry) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stored := 0
	for _, e := range entries {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO pot (ciphertext, plaintext, format)
			VALUES ($1, $2, $3)
			ON CONFLICT (ciphertext) DO NOTHING
		`, e.Ciphertext, e.Plaintext, e.Format)
		if err != nil {
			return 0, fmt.Errorf("insert: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			stored += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}
