// Package journal persists match and dispatch events to SQLite so history
// survives restarts. It is write-only from the session's point of view and
// never feeds deduplication.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/screenwatch/internal/events"
)

// Journal is an append-only event log.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session TEXT NOT NULL,
    kind TEXT NOT NULL,
    keyword TEXT,
    line TEXT,
    fingerprint TEXT,
    payload TEXT,
    outcome TEXT,
    error TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at);`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append writes evs in one transaction.
func (j *Journal) Append(ctx context.Context, evs []events.Event) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (session, kind, keyword, line, fingerprint, payload, outcome, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range evs {
		if _, err := stmt.ExecContext(ctx,
			e.Session, string(e.Type), e.Keyword, e.Line, e.Fingerprint,
			e.Payload, e.Outcome, e.Error, e.Time.UTC().UnixNano(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT session, kind, keyword, line, fingerprint, payload, outcome, error, created_at
FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e    events.Event
			kind string
			ts   int64
		)
		if err := rows.Scan(&e.Session, &kind, &e.Keyword, &e.Line, &e.Fingerprint,
			&e.Payload, &e.Outcome, &e.Error, &ts); err != nil {
			return nil, err
		}
		e.Type = events.Type(kind)
		e.Time = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored events of the given kind.
func (j *Journal) Count(ctx context.Context, kind events.Type) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE kind = ?`, string(kind)).Scan(&n)
	return n, err
}
