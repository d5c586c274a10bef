// Package database persists validated extraction records to an append-only
// SQLite log. There is no update or delete path.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"railops-assistant/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	user_name TEXT,
	category TEXT,
	item TEXT,
	quantity REAL,
	location TEXT,
	status TEXT,
	sentiment INTEGER,
	raw_text TEXT
)`

// Store is the durable sink for extraction records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the record log at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record log: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize record log schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append writes one validated record together with its source message.
func (s *Store) Append(ctx context.Context, speaker string, rec *models.ExtractionRecord, rawText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, user_name, category, item, quantity, location, status, sentiment, raw_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), speaker, rec.Category, rec.Item,
		rec.Quantity, rec.Location, rec.Status, rec.Sentiment, rawText)
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, user_name, category, item, quantity, location, status, sentiment, raw_text
		 FROM logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query record log: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var (
			e  models.LogEntry
			ts string
			q  sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &ts, &e.UserName, &e.Category, &e.Item, &q, &e.Location, &e.Status, &e.Sentiment, &e.RawText); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
		if q.Valid {
			v := q.Float64
			e.Quantity = &v
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
