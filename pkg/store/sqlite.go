package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"GoModelRouter/pkg/candidate"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS candidates (
	position             INTEGER NOT NULL,
	id                   TEXT PRIMARY KEY,
	success_count        INTEGER NOT NULL DEFAULT 0,
	failure_count        INTEGER NOT NULL DEFAULT 0,
	last_success         INTEGER,
	last_failure         INTEGER,
	score                REAL NOT NULL,
	consecutive_failures INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS pool_meta (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	last_fetch INTEGER
);`

// SQLiteBackend stores one row per candidate. Timestamps are Unix
// nanoseconds; NULL means never.
type SQLiteBackend struct {
	DB *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteBackend{DB: db}, nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	return b.DB.Close()
}

func (b *SQLiteBackend) Load(ctx context.Context) (candidate.Pool, error) {
	var pool candidate.Pool

	var lastFetch sql.NullInt64
	err := b.DB.QueryRowContext(ctx, `SELECT last_fetch FROM pool_meta WHERE id = 1`).Scan(&lastFetch)
	if err != nil && err != sql.ErrNoRows {
		return candidate.Pool{}, fmt.Errorf("query pool meta: %w", err)
	}
	pool.LastFetch = fromNanos(lastFetch)

	rows, err := b.DB.QueryContext(ctx, `
		SELECT id, success_count, failure_count, last_success, last_failure, score, consecutive_failures
		FROM candidates ORDER BY position`)
	if err != nil {
		return candidate.Pool{}, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                    candidate.Record
			lastSucc, lastFailed sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.SuccessCount, &r.FailureCount, &lastSucc, &lastFailed, &r.Score, &r.ConsecutiveFailures); err != nil {
			return candidate.Pool{}, fmt.Errorf("scan candidate: %w", err)
		}
		r.LastSuccess = nullableTime(lastSucc)
		r.LastFailure = nullableTime(lastFailed)
		pool.Candidates = append(pool.Candidates, r)
	}
	return pool, rows.Err()
}

// Save rewrites the whole snapshot in one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, pool candidate.Pool) error {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM candidates`); err != nil {
		return fmt.Errorf("clear candidates: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates (position, id, success_count, failure_count, last_success, last_failure, score, consecutive_failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range pool.Candidates {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.SuccessCount, r.FailureCount,
			toNanos(r.LastSuccess), toNanos(r.LastFailure), r.Score, r.ConsecutiveFailures); err != nil {
			return fmt.Errorf("insert candidate %s: %w", r.ID, err)
		}
	}

	var lastFetch sql.NullInt64
	if !pool.LastFetch.IsZero() {
		lastFetch = sql.NullInt64{Int64: pool.LastFetch.UnixNano(), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pool_meta (id, last_fetch) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_fetch = excluded.last_fetch`, lastFetch); err != nil {
		return fmt.Errorf("update pool meta: %w", err)
	}
	return tx.Commit()
}

func toNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(0, n.Int64).UTC()
}

func nullableTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n)
	return &t
}
