package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Caller is one row per distinct normalized number. E164 is empty for the
// anonymous caller row.
type Caller struct {
	ID        uuid.UUID
	E164      string
	Label     string
	LastScore float64
	LastSeen  time.Time
}

// CallEvent is an immutable record of one screening decision. Never updated
// after creation; removed only by retention.
type CallEvent struct {
	ID        uuid.UUID
	CallerID  uuid.UUID // uuid.Nil when the caller is unknown or deleted
	Timestamp time.Time
	State     string
	Decision  string
	Reason    string
}

// Screening event states.
const (
	StateEvaluated = "EVALUATED"
	StateScreened  = "SCREENED"
)

// FindOrCreateCaller upserts the caller row for a normalized number, stamping
// the latest score and last-seen time.
func (s *Store) FindOrCreateCaller(ctx context.Context, e164 string, lastScore float64, seen time.Time) (Caller, error) {
	var c Caller
	row := s.pool.QueryRow(ctx, `
		INSERT INTO callers (id, e164, last_score, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (e164)
		DO UPDATE SET last_score = $3, last_seen = $4
		RETURNING id, e164, COALESCE(label, ''), COALESCE(last_score, 0), last_seen`,
		uuid.New(), e164, lastScore, seen,
	)
	if err := row.Scan(&c.ID, &c.E164, &c.Label, &c.LastScore, &c.LastSeen); err != nil {
		return Caller{}, fmt.Errorf("upsert caller: %w", err)
	}
	return c, nil
}

// AppendEvent inserts an immutable call event and returns its id.
func (s *Store) AppendEvent(ctx context.Context, ev CallEvent) (uuid.UUID, error) {
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var callerID *uuid.UUID
	if ev.CallerID != uuid.Nil {
		callerID = &ev.CallerID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO call_events (id, caller_id, ts, state, decision, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, callerID, ev.Timestamp, ev.State, ev.Decision, ev.Reason,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert call event: %w", err)
	}
	return id, nil
}

// ListEvents returns up to limit events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]CallEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, caller_id, ts, state, COALESCE(decision, ''), COALESCE(reason, '')
		FROM call_events
		ORDER BY ts DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list call events: %w", err)
	}
	defer rows.Close()

	var events []CallEvent
	for rows.Next() {
		var ev CallEvent
		var callerID *uuid.UUID
		if err := rows.Scan(&ev.ID, &callerID, &ev.Timestamp, &ev.State, &ev.Decision, &ev.Reason); err != nil {
			return nil, fmt.Errorf("scan call event: %w", err)
		}
		if callerID != nil {
			ev.CallerID = *callerID
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

func translateNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
