// Package retention purges call events and transcripts past the retention
// window.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Maintenance is the slice of the store the sweeper needs. Transcripts are
// deleted before events so the child never outlives its parent, even without
// an engine-enforced cascade.
type Maintenance interface {
	DeleteTranscriptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper runs the retention purge on a fixed schedule. Deletes are bounded
// by a cutoff strictly older than now, so the sweep needs no coordination
// with concurrent inserts, and re-running a failed sweep is harmless.
type Sweeper struct {
	store         Maintenance
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewSweeper(store Maintenance, retentionDays int, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:         store,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Run sweeps once at startup and then on every tick until ctx is cancelled.
// A failed sweep is retried at the next tick; deletes are idempotent so no
// partial-state repair is needed.
func (s *Sweeper) Run(ctx context.Context) {
	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes everything older than the retention window, children first.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-time.Duration(s.retentionDays) * 24 * time.Hour)

	transcripts, err := s.store.DeleteTranscriptsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete transcripts before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	events, err := s.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete events before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	s.logger.Info("retention sweep done",
		"cutoff", cutoff.Format(time.RFC3339),
		"transcripts_deleted", transcripts,
		"events_deleted", events,
	)
	return nil
}
