package store

import (
	"context"
	"fmt"
)

// FrequencyLast7d counts a number's calls over the trailing seven days. Only
// EVALUATED rows count: each call produces exactly one, while a SCREENED row
// is a follow-up record for a call already counted.
func (s *Store) FrequencyLast7d(ctx context.Context, e164 string) (int, error) {
	var n int
	row := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM call_events e
		JOIN callers c ON e.caller_id = c.id
		WHERE c.e164 = $1 AND e.state = $2 AND e.ts > now() - interval '7 days'`,
		e164, StateEvaluated,
	)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent events: %w", err)
	}
	return n, nil
}

// LastDurationSec reports the duration of the caller's previous call. Call
// durations live with the telephony collaborator and are not recorded here,
// so this is always 0 (unknown) for now.
func (s *Store) LastDurationSec(ctx context.Context, e164 string) (int, error) {
	return 0, nil
}
