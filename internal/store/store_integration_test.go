//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_AppendAndListEvents(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.AppendEvent(ctx, CallEvent{
		Timestamp: time.Now(),
		State:     StateEvaluated,
		Decision:  "SCREEN",
		Reason:    "score=0.48",
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected non-nil event ID")
	}

	events, err := s.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	// Newest-first ordering: the freshly appended event must be at the top.
	if events[0].ID != id {
		t.Errorf("expected newest event first, got %s", events[0].ID)
	}
}

func TestIntegration_TranscriptLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	evID, err := s.AppendEvent(ctx, CallEvent{
		Timestamp: time.Now(),
		State:     StateScreened,
		Decision:  "BOT",
		Reason:    "bot session",
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	trID, err := s.SaveTranscript(ctx, evID, "this is mario from the bank", "this is mario")
	if err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if trID == uuid.Nil {
		t.Fatal("expected non-nil transcript ID")
	}

	tr, err := s.TranscriptByEvent(ctx, evID)
	if err != nil {
		t.Fatalf("TranscriptByEvent failed: %v", err)
	}
	if tr.Text != "this is mario from the bank" {
		t.Errorf("unexpected transcript text %q", tr.Text)
	}

	if _, err := s.TranscriptByEvent(ctx, uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing transcript, got %v", err)
	}
}

func TestIntegration_RetentionDeletesChildrenFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()
	oldID, err := s.AppendEvent(ctx, CallEvent{
		Timestamp: now.Add(-40 * 24 * time.Hour),
		State:     StateScreened,
		Decision:  "BOT",
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if _, err := s.SaveTranscript(ctx, oldID, "old transcript", ""); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	freshID, err := s.AppendEvent(ctx, CallEvent{
		Timestamp: now.Add(-10 * 24 * time.Hour),
		State:     StateEvaluated,
		Decision:  "ALLOW",
	})
	if err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	cutoff := now.Add(-30 * 24 * time.Hour)
	if _, err := s.DeleteTranscriptsBefore(ctx, cutoff); err != nil {
		t.Fatalf("DeleteTranscriptsBefore failed: %v", err)
	}
	if _, err := s.DeleteEventsBefore(ctx, cutoff); err != nil {
		t.Fatalf("DeleteEventsBefore failed: %v", err)
	}

	if _, err := s.TranscriptByEvent(ctx, oldID); err != ErrNotFound {
		t.Errorf("expected old transcript gone, got %v", err)
	}
	events, err := s.ListEvents(ctx, 100)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	foundFresh := false
	for _, ev := range events {
		if ev.ID == oldID {
			t.Error("expected old event deleted by retention")
		}
		if ev.ID == freshID {
			foundFresh = true
		}
	}
	if !foundFresh {
		t.Error("expected 10-day-old event to survive the sweep")
	}
}

func TestIntegration_FrequencyLast7d(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e164 := "+39333" + uuid.New().String()[:8]
	caller, err := s.FindOrCreateCaller(ctx, e164, 0.5, time.Now())
	if err != nil {
		t.Fatalf("FindOrCreateCaller failed: %v", err)
	}

	now := time.Now()
	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 10 * 24 * time.Hour} {
		if _, err := s.AppendEvent(ctx, CallEvent{
			CallerID:  caller.ID,
			Timestamp: now.Add(-age),
			State:     StateEvaluated,
			Decision:  "SCREEN",
		}); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}
	// A bot follow-up for an already-counted call must not inflate the count.
	if _, err := s.AppendEvent(ctx, CallEvent{
		CallerID:  caller.ID,
		Timestamp: now.Add(-time.Hour),
		State:     StateScreened,
		Decision:  "BOT",
	}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	n, err := s.FrequencyLast7d(ctx, e164)
	if err != nil {
		t.Fatalf("FrequencyLast7d failed: %v", err)
	}
	// The 10-day-old event is outside the window; the SCREENED row is a
	// follow-up, not a call.
	if n != 2 {
		t.Errorf("expected 2 calls in the last 7 days, got %d", n)
	}
}

func TestIntegration_CallerUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	e164 := "+39333" + uuid.New().String()[:8]
	first, err := s.FindOrCreateCaller(ctx, e164, 0.3, time.Now())
	if err != nil {
		t.Fatalf("FindOrCreateCaller failed: %v", err)
	}
	second, err := s.FindOrCreateCaller(ctx, e164, 0.7, time.Now())
	if err != nil {
		t.Fatalf("FindOrCreateCaller (second) failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected one row per number, got %s and %s", first.ID, second.ID)
	}
	if second.LastScore != 0.7 {
		t.Errorf("expected last score updated to 0.7, got %f", second.LastScore)
	}
}
