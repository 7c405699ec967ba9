package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT NOT NULL,
	source TEXT NOT NULL,
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	event_date TEXT NOT NULL,
	occurs_at TEXT NOT NULL,
	starts_at TEXT,
	ends_at TEXT,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	details TEXT NOT NULL DEFAULT '{}',
	updated_at TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (source, category, name, event_date)
);
CREATE INDEX IF NOT EXISTS idx_events_occurs_at ON events(occurs_at);
CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
`

// SQLiteStore persists events in a SQLite database. The natural key
// (source, category, name, event_date) is the primary key, so upserts from
// repeated aggregation runs overwrite rather than duplicate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and bootstraps the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteUpsert = `
INSERT INTO events (id, source, category, name, event_date, occurs_at, starts_at, ends_at, latitude, longitude, details, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
ON CONFLICT (source, category, name, event_date) DO UPDATE SET
	id = excluded.id,
	occurs_at = excluded.occurs_at,
	starts_at = excluded.starts_at,
	ends_at = excluded.ends_at,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	details = excluded.details,
	updated_at = excluded.updated_at
`

// Upsert writes all events in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, events []astro.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal details for %s: %w", e.Key(), err)
		}

		_, err = stmt.ExecContext(ctx,
			e.ID,
			string(e.Source),
			string(e.Category),
			e.Name,
			e.Date(),
			e.OccursAt.UTC().Format(time.RFC3339),
			timeToNull(e.StartsAt),
			timeToNull(e.EndsAt),
			e.Location.Latitude,
			e.Location.Longitude,
			string(details),
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", e.Key(), err)
		}
	}

	return tx.Commit()
}

// List returns one page of events plus the total match count.
func (s *SQLiteStore) List(ctx context.Context, f astro.Filter) ([]astro.Event, int, error) {
	where := " WHERE 1=1"
	var args []interface{}

	if !f.From.IsZero() {
		where += " AND occurs_at >= ?"
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		where += " AND occurs_at <= ?"
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	if f.Source != "" {
		where += " AND source = ?"
		args = append(args, string(f.Source))
	}
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, string(f.Category))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query := "SELECT id, source, category, name, occurs_at, starts_at, ends_at, latitude, longitude, details FROM events" +
		where + " ORDER BY occurs_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]astro.Event, 0)
	for rows.Next() {
		var (
			e                astro.Event
			source, category string
			occursAt         string
			startsAt, endsAt sql.NullString
			details          string
		)
		if err := rows.Scan(&e.ID, &source, &category, &e.Name, &occursAt, &startsAt, &endsAt,
			&e.Location.Latitude, &e.Location.Longitude, &details); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}

		e.Source = astro.Source(source)
		e.Category = astro.Category(category)
		if ts, err := time.Parse(time.RFC3339, occursAt); err == nil {
			e.OccursAt = ts
		}
		e.StartsAt = nullToTime(startsAt)
		e.EndsAt = nullToTime(endsAt)
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, 0, fmt.Errorf("unmarshal details for %s: %w", e.ID, err)
		}

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func timeToNull(ts *time.Time) sql.NullString {
	if ts == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: ts.UTC().Format(time.RFC3339), Valid: true}
}

func nullToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &ts
}
