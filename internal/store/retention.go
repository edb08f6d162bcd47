package store

import (
	"context"
	"fmt"
	"time"
)

// DeleteTranscriptsBefore removes transcripts whose linked call event is older
// than cutoff. Runs before DeleteEventsBefore so children never outlive their
// parent even without engine-enforced cascades.
func (s *Store) DeleteTranscriptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM transcripts
		WHERE call_event_id IN (SELECT id FROM call_events WHERE ts < $1)`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete transcripts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteEventsBefore removes call events older than cutoff.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM call_events WHERE ts < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete call events: %w", err)
	}
	return tag.RowsAffected(), nil
}
