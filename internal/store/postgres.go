package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT NOT NULL,
	source TEXT NOT NULL,
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	event_date DATE NOT NULL,
	occurs_at TIMESTAMPTZ NOT NULL,
	starts_at TIMESTAMPTZ,
	ends_at TIMESTAMPTZ,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	details JSONB NOT NULL DEFAULT '{}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (source, category, name, event_date)
);
CREATE INDEX IF NOT EXISTS idx_events_occurs_at ON events (occurs_at);
CREATE INDEX IF NOT EXISTS idx_events_source ON events (source);
`

// PostgresStore persists events in PostgreSQL via a pgx pool. Same upsert
// semantics as the SQLite store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at dsn and bootstraps the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres store: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresUpsert = `
INSERT INTO events (id, source, category, name, event_date, occurs_at, starts_at, ends_at, latitude, longitude, details, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
ON CONFLICT (source, category, name, event_date) DO UPDATE SET
	id = EXCLUDED.id,
	occurs_at = EXCLUDED.occurs_at,
	starts_at = EXCLUDED.starts_at,
	ends_at = EXCLUDED.ends_at,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	details = EXCLUDED.details,
	updated_at = EXCLUDED.updated_at
`

// Upsert writes all events in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, events []astro.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal details for %s: %w", e.Key(), err)
		}

		_, err = tx.Exec(ctx, postgresUpsert,
			e.ID,
			string(e.Source),
			string(e.Category),
			e.Name,
			e.Date(),
			e.OccursAt.UTC(),
			e.StartsAt,
			e.EndsAt,
			e.Location.Latitude,
			e.Location.Longitude,
			details,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", e.Key(), err)
		}
	}

	return tx.Commit(ctx)
}

// List returns one page of events plus the total match count.
func (s *PostgresStore) List(ctx context.Context, f astro.Filter) ([]astro.Event, int, error) {
	where := " WHERE true"
	var args []interface{}

	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		where += fmt.Sprintf(" AND occurs_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		where += fmt.Sprintf(" AND occurs_at <= $%d", len(args))
	}
	if f.Source != "" {
		args = append(args, string(f.Source))
		where += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := "SELECT id, source, category, name, occurs_at, starts_at, ends_at, latitude, longitude, details FROM events" +
		where + " ORDER BY occurs_at ASC, id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]astro.Event, 0)
	for rows.Next() {
		var (
			e                astro.Event
			source, category string
			occursAt         time.Time
			details          []byte
		)
		if err := rows.Scan(&e.ID, &source, &category, &e.Name, &occursAt, &e.StartsAt, &e.EndsAt,
			&e.Location.Latitude, &e.Location.Longitude, &details); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}

		e.Source = astro.Source(source)
		e.Category = astro.Category(category)
		e.OccursAt = occursAt.UTC()
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, 0, fmt.Errorf("unmarshal details for %s: %w", e.ID, err)
		}

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
