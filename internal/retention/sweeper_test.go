package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memMaintenance simulates the store's retention surface over in-memory rows.
type memMaintenance struct {
	mu          sync.Mutex
	events      map[int]time.Time // id -> timestamp
	transcripts map[int]int       // transcript id -> event id
	failDeletes bool

	transcriptCallBefore bool // transcripts deleted before events in this sweep
	eventsDeletedFirst   bool
}

func (m *memMaintenance) DeleteTranscriptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeletes {
		return 0, errors.New("storage down")
	}
	m.transcriptCallBefore = true
	var n int64
	for tid, eid := range m.transcripts {
		if ts, ok := m.events[eid]; ok && ts.Before(cutoff) {
			delete(m.transcripts, tid)
			n++
		}
	}
	return n, nil
}

func (m *memMaintenance) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeletes {
		return 0, errors.New("storage down")
	}
	if !m.transcriptCallBefore {
		m.eventsDeletedFirst = true
	}
	var n int64
	for id, ts := range m.events {
		if ts.Before(cutoff) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}

func TestSweep_PurgesOldKeepsFresh(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := &memMaintenance{
		events: map[int]time.Time{
			1: now.Add(-40 * 24 * time.Hour), // past the window, with transcript
			2: now.Add(-10 * 24 * time.Hour), // inside the window
		},
		transcripts: map[int]int{10: 1},
	}

	s := NewSweeper(m, 30, time.Hour, testLogger())
	s.now = func() time.Time { return now }

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if _, ok := m.events[1]; ok {
		t.Error("40-day-old event should be purged")
	}
	if _, ok := m.transcripts[10]; ok {
		t.Error("linked transcript should be purged with its event")
	}
	if _, ok := m.events[2]; !ok {
		t.Error("10-day-old event should survive")
	}
	if m.eventsDeletedFirst {
		t.Error("events must be deleted after transcripts")
	}
}

func TestSweep_Idempotent(t *testing.T) {
	now := time.Now()
	m := &memMaintenance{
		events:      map[int]time.Time{1: now.Add(-40 * 24 * time.Hour)},
		transcripts: map[int]int{},
	}
	s := NewSweeper(m, 30, time.Hour, testLogger())

	for i := 0; i < 3; i++ {
		if err := s.Sweep(context.Background()); err != nil {
			t.Fatalf("Sweep %d failed: %v", i, err)
		}
	}
	if len(m.events) != 0 {
		t.Error("repeated sweeps should leave the same empty state")
	}
}

func TestSweep_ErrorPropagates(t *testing.T) {
	m := &memMaintenance{failDeletes: true}
	s := NewSweeper(m, 30, time.Hour, testLogger())

	if err := s.Sweep(context.Background()); err == nil {
		t.Error("expected sweep error")
	}
}

func TestRun_RetriesAtNextTick(t *testing.T) {
	now := time.Now()
	m := &memMaintenance{
		events:      map[int]time.Time{1: now.Add(-40 * 24 * time.Hour)},
		transcripts: map[int]int{},
		failDeletes: true,
	}
	s := NewSweeper(m, 30, 20*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// First sweep fails; heal the store and wait for a later tick to purge.
	time.Sleep(10 * time.Millisecond)
	m.mu.Lock()
	m.failDeletes = false
	m.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		n := len(m.events)
		m.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweep never succeeded after the store recovered")
}
