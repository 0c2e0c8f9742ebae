// Package store keeps an append-only sqlite history of finished checks.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// DefaultRecentLimit is used by Recent when limit is not positive.
const DefaultRecentLimit = 20

// Fixed width UTC so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type RunStore struct {
	DB *sql.DB
}

// NewRunStore opens (and creates) the database at dbPath.
func NewRunStore(dbPath string) (*RunStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			error TEXT,
			notified INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return &RunStore{DB: db}, nil
}

func (s *RunStore) Record(ctx context.Context, r Run) error {
	query := `INSERT INTO runs (id, started_at, finished_at, attempts, status, message, error, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, query,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
		r.Attempts,
		string(r.Status),
		r.Message,
		r.Error,
		r.Notified,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	query := `SELECT id, started_at, finished_at, attempts, status, message, error, notified
		FROM runs ORDER BY started_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			status            string
			message, errText  sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Attempts, &status, &message, &errText, &r.Notified); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at of run %s: %w", r.ID, err)
		}
		r.Status = Status(status)
		r.Message = message.String
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *RunStore) Close() error {
	return s.DB.Close()
}
