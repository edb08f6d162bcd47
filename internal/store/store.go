// Package store is the durable call-event store backed by Postgres.
//
// Encryption at rest is the responsibility of the database deployment and its
// key-management facility; this package only sees DATABASE_URL.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// ensureSchema creates the tables if they do not exist. The transcript →
// call_event cascade and the call_event → caller SET NULL mirror the record
// lifecycle: transcripts never outlive their event, events survive caller
// deletion with a nulled reference.
func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS callers (
			id         uuid PRIMARY KEY,
			e164       text UNIQUE,
			label      text,
			last_score double precision,
			last_seen  timestamptz
		)`,
		`CREATE TABLE IF NOT EXISTS call_events (
			id        uuid PRIMARY KEY,
			caller_id uuid REFERENCES callers(id) ON DELETE SET NULL,
			ts        timestamptz NOT NULL,
			state     text NOT NULL,
			decision  text,
			reason    text
		)`,
		`CREATE INDEX IF NOT EXISTS call_events_ts_idx ON call_events (ts DESC)`,
		`CREATE TABLE IF NOT EXISTS transcripts (
			id            uuid PRIMARY KEY,
			call_event_id uuid NOT NULL UNIQUE REFERENCES call_events(id) ON DELETE CASCADE,
			text          text NOT NULL,
			summary       text
		)`,
		`CREATE TABLE IF NOT EXISTS rules (
			id      uuid PRIMARY KEY,
			type    text NOT NULL,
			value   text NOT NULL,
			weight  double precision NOT NULL,
			enabled boolean NOT NULL DEFAULT true
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
