// Package eventlog decouples the screening decision path from event storage.
//
// Appends go through a bounded queue drained by a background consumer, so the
// decision path never blocks on the database. Delivery is at-most-effort: when
// the queue is full the event is dropped and counted, never backpressured
// into the caller. Subscribers get a snapshot of the stored log plus every
// subsequent successfully persisted append, in append order.
package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/centralino/centralino/internal/store"
)

// Appender is the slice of the store the log writes through.
type Appender interface {
	AppendEvent(ctx context.Context, ev store.CallEvent) (uuid.UUID, error)
	ListEvents(ctx context.Context, limit int) ([]store.CallEvent, error)
}

// Notifier publishes persisted events for out-of-process consumers. Optional.
type Notifier interface {
	Publish(subject string, data any) error
}

const (
	snapshotLimit  = 200
	appendRetries  = 3
	retryBackoff   = 250 * time.Millisecond
	subscriberSize = 32
)

type Log struct {
	appender Appender
	notifier Notifier
	subject  string
	logger   *slog.Logger

	queue   chan store.CallEvent
	dropped atomic.Int64

	mu   sync.Mutex
	subs map[int]chan store.CallEvent
	next int
}

func New(appender Appender, notifier Notifier, subject string, queueSize int, logger *slog.Logger) *Log {
	return &Log{
		appender: appender,
		notifier: notifier,
		subject:  subject,
		logger:   logger,
		queue:    make(chan store.CallEvent, queueSize),
		subs:     make(map[int]chan store.CallEvent),
	}
}

// Append enqueues an event for persistence. Non-blocking: a full queue drops
// the event. The timestamp is assigned here, at creation, and never mutated.
func (l *Log) Append(ev store.CallEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	select {
	case l.queue <- ev:
	default:
		n := l.dropped.Add(1)
		l.logger.Error("event queue full, dropping event", "decision", ev.Decision, "dropped_total", n)
	}
}

// AppendSync persists an event immediately and returns its id. For callers
// already off the decision path (the bot completion handler) that need the id
// to link a transcript. Fans out to live subscribers like the queued path.
func (l *Log) AppendSync(ctx context.Context, ev store.CallEvent) (uuid.UUID, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if _, err := l.appender.AppendEvent(ctx, ev); err != nil {
		return uuid.Nil, err
	}
	l.fanout(ev)
	if l.notifier != nil {
		if err := l.notifier.Publish(l.subject, ev); err != nil {
			l.logger.Warn("event publish failed", "error", err)
		}
	}
	return ev.ID, nil
}

// Recent returns up to limit stored events, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]store.CallEvent, error) {
	return l.appender.ListEvents(ctx, limit)
}

// Dropped reports how many events were lost to a full queue.
func (l *Log) Dropped() int64 {
	return l.dropped.Load()
}

// Run drains the queue until ctx is cancelled. Storage failures are retried a
// bounded number of times, then the event is dropped with an error log;
// supervision of the append path never reaches the decision path.
func (l *Log) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.queue:
			if !l.persist(ctx, ev) {
				continue
			}
			l.fanout(ev)
			if l.notifier != nil {
				if err := l.notifier.Publish(l.subject, ev); err != nil {
					l.logger.Warn("event publish failed", "error", err)
				}
			}
		}
	}
}

func (l *Log) persist(ctx context.Context, ev store.CallEvent) bool {
	var err error
	for attempt := 0; attempt < appendRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return false
			}
		}
		if _, err = l.appender.AppendEvent(ctx, ev); err == nil {
			return true
		}
	}
	n := l.dropped.Add(1)
	l.logger.Error("event append failed after retries", "error", err, "dropped_total", n)
	return false
}

func (l *Log) fanout(ev store.CallEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, ch := range l.subs {
		select {
		case ch <- ev:
		default:
			l.logger.Warn("live-log subscriber lagging, dropping update", "subscriber", id)
		}
	}
}

// Subscribe returns the current snapshot (newest first) and a channel of
// subsequent appends in append order. Two subscribers may observe an update
// at different instants, but each sees appends in order. Call the returned
// cancel func to release the subscription.
func (l *Log) Subscribe(ctx context.Context) ([]store.CallEvent, <-chan store.CallEvent, func(), error) {
	snapshot, err := l.appender.ListEvents(ctx, snapshotLimit)
	if err != nil {
		return nil, nil, nil, err
	}

	ch := make(chan store.CallEvent, subscriberSize)
	l.mu.Lock()
	id := l.next
	l.next++
	l.subs[id] = ch
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
	return snapshot, ch, cancel, nil
}
