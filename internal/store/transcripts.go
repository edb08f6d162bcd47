package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Transcript holds the text captured by a bot session, one-to-one with its
// call event.
type Transcript struct {
	ID          uuid.UUID
	CallEventID uuid.UUID
	Text        string
	Summary     string
}

// SaveTranscript inserts the transcript for a call event. The unique
// constraint on call_event_id enforces the one-to-one relationship.
func (s *Store) SaveTranscript(ctx context.Context, callEventID uuid.UUID, text, summary string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transcripts (id, call_event_id, text, summary)
		VALUES ($1, $2, $3, $4)`,
		id, callEventID, text, summary,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert transcript: %w", err)
	}
	return id, nil
}

// TranscriptByEvent fetches the transcript linked to a call event, or
// ErrNotFound.
func (s *Store) TranscriptByEvent(ctx context.Context, callEventID uuid.UUID) (Transcript, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, call_event_id, text, COALESCE(summary, '')
		FROM transcripts
		WHERE call_event_id = $1`,
		callEventID,
	)
	var tr Transcript
	if err := row.Scan(&tr.ID, &tr.CallEventID, &tr.Text, &tr.Summary); err != nil {
		return Transcript{}, translateNoRows(err)
	}
	return tr, nil
}
