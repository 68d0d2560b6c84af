// Package sqlite implements the event document store on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection backing the event document store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at the given DSN.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:events.db?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	slug            TEXT NOT NULL UNIQUE,
	title           TEXT NOT NULL,
	description     TEXT,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	start_time      TEXT NOT NULL DEFAULT '',
	end_time        TEXT NOT NULL DEFAULT '',
	all_day         INTEGER NOT NULL DEFAULT 0,
	date_type       TEXT NOT NULL DEFAULT 'single',
	repeat_interval TEXT NOT NULL DEFAULT '',
	repeat_count    INTEGER NOT NULL DEFAULT 0,
	start_at        TEXT NOT NULL DEFAULT '',
	end_at          TEXT NOT NULL DEFAULT '',
	group_id        TEXT,
	has_clones      INTEGER NOT NULL DEFAULT 0,
	is_clone        INTEGER NOT NULL DEFAULT 0,
	published       INTEGER NOT NULL DEFAULT 0,
	published_at    TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_start_date ON events (start_date);
CREATE INDEX IF NOT EXISTS idx_events_group_id ON events (group_id);
`

// Migrate applies the schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		return nil
	})
}

// WithTransaction executes fn within a transaction, rolling back when fn
// returns an error.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
