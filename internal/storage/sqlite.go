// Package storage provides the SQLite persistence backend for the sent-items
// set and the short link table.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"rss_relay/migrations"
)

const (
	timeLayout     = "2006-01-02T15:04:05Z"
	keyLastUpdated = "sent_items_last_updated"
)

// SQLite stores relay state in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadSentItems returns every recorded item identifier.
func (s *SQLite) LoadSentItems(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sent_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sent items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sent item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveSentItems inserts any identifiers not stored yet and updates the
// last-updated marker. Rows are never deleted.
func (s *SQLite) SaveSentItems(ctx context.Context, ids []string, updated time.Time) error {
	ts := updated.UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO sent_items (id, sent_at) VALUES (?, ?)`, id, ts,
		); err != nil {
			return fmt.Errorf("insert sent item: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		keyLastUpdated, ts,
	); err != nil {
		return fmt.Errorf("update last updated: %w", err)
	}
	return tx.Commit()
}

// LastUpdated returns the time of the last SaveSentItems call, or nil.
func (s *SQLite) LastUpdated(ctx context.Context) (*time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sync_state WHERE key = ?`, keyLastUpdated,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last updated: %w", err)
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("parse last updated: %w", err)
	}
	return &t, nil
}

// LoadMappings returns the full code to URL table.
func (s *SQLite) LoadMappings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, long_url FROM short_links`)
	if err != nil {
		return nil, fmt.Errorf("query short links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	m := make(map[string]string)
	for rows.Next() {
		var code, longURL string
		if err := rows.Scan(&code, &longURL); err != nil {
			return nil, fmt.Errorf("scan short link: %w", err)
		}
		m[code] = longURL
	}
	return m, rows.Err()
}

// SaveMappings stores every mapping that is not present yet. Codes are
// never reassigned, so existing rows are left untouched.
func (s *SQLite) SaveMappings(ctx context.Context, mappings map[string]string) error {
	now := time.Now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for code, longURL := range mappings {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO short_links (code, long_url, created_at) VALUES (?, ?, ?)`,
			code, longURL, now,
		); err != nil {
			return fmt.Errorf("insert short link: %w", err)
		}
	}
	return tx.Commit()
}
