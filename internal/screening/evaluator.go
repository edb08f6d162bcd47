// Package screening holds the call-admission decision pipeline and the
// telephony-facing service around it.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/centralino/centralino/internal/eventlog"
	"github.com/centralino/centralino/internal/number"
	"github.com/centralino/centralino/internal/scoring"
	"github.com/centralino/centralino/internal/store"
)

// ContactsLookup is the contact-directory collaborator.
type ContactsLookup interface {
	IsKnownContact(ctx context.Context, e164 string) (bool, string, error)
}

// RuleSource provides the enabled scoring rules.
type RuleSource interface {
	EnabledRules(ctx context.Context) ([]scoring.Rule, error)
}

// CallerHistory provides per-caller call statistics for scoring.
type CallerHistory interface {
	FrequencyLast7d(ctx context.Context, e164 string) (int, error)
	LastDurationSec(ctx context.Context, e164 string) (int, error)
}

// NeutralHistory is the default caller-history source: it reports neutral
// values until a real history collaborator is wired in.
type NeutralHistory struct{}

func (NeutralHistory) FrequencyLast7d(context.Context, string) (int, error) { return 0, nil }
func (NeutralHistory) LastDurationSec(context.Context, string) (int, error) { return 0, nil }

// Evaluator is the synchronous decision function. Evaluate must return within
// the telephony callback's deadline: the only I/O on its path is the local
// contacts/rules lookups, and event logging is handed to the background log.
type Evaluator struct {
	contacts  ContactsLookup
	scorer    scoring.Scorer
	rules     RuleSource
	history   CallerHistory
	callers   CallerDirectory
	events    *eventlog.Log
	threshold float64
	logger    *slog.Logger
	now       func() time.Time
}

func NewEvaluator(contacts ContactsLookup, scorer scoring.Scorer, rules RuleSource, history CallerHistory, callers CallerDirectory, events *eventlog.Log, threshold float64, logger *slog.Logger) *Evaluator {
	if history == nil {
		history = NeutralHistory{}
	}
	return &Evaluator{
		contacts:  contacts,
		scorer:    scorer,
		rules:     rules,
		history:   history,
		callers:   callers,
		events:    events,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Evaluate decides admission for a raw caller number. Collaborator failures
// never abort the decision: lookup errors degrade to the conservative Screen
// outcome. Exactly one call event is appended per evaluation, asynchronously;
// the returned decision does not wait on storage.
func (e *Evaluator) Evaluate(ctx context.Context, rawNumber string, simSlot int) Evaluation {
	normalized, ok := number.Normalize(rawNumber)

	ev := Evaluation{Number: normalized, Anonymous: !ok}
	ev.Decision = e.decide(ctx, &ev, ok)

	e.logEvent(ev, simSlot)
	return ev
}

func (e *Evaluator) decide(ctx context.Context, ev *Evaluation, valid bool) Decision {
	if valid && number.IsEmergency(ev.Number) {
		return Allow("Emergency")
	}
	if valid {
		known, name, err := e.contacts.IsKnownContact(ctx, ev.Number)
		if err != nil {
			// Fail safe: an unreachable directory must not crash the
			// telephony callback or let a possible contact be blocked.
			e.logger.Warn("contacts lookup failed, screening conservatively", "error", err)
			return Screen("Unknown caller")
		}
		if known {
			if name == "" {
				name = ev.Number
			}
			return Allow("Known contact: " + name)
		}
	}
	return e.scoreAndDecide(ctx, ev)
}

func (e *Evaluator) scoreAndDecide(ctx context.Context, ev *Evaluation) Decision {
	rules, err := e.rules.EnabledRules(ctx)
	if err != nil {
		e.logger.Warn("rule fetch failed, scoring without rules", "error", err)
		rules = nil
	}
	freq, err := e.history.FrequencyLast7d(ctx, ev.Number)
	if err != nil {
		e.logger.Warn("caller history unavailable, using neutral frequency", "error", err)
		freq = 0
	}
	duration, err := e.history.LastDurationSec(ctx, ev.Number)
	if err != nil {
		duration = 0
	}

	sctx := scoring.Context{
		Anonymous:       ev.Anonymous,
		FrequencyLast7d: freq,
		LastDurationSec: duration,
		Rules:           rules,
	}
	ev.Score = e.scorer.Score(ev.Number, sctx)
	ev.Scored = true

	if ev.Score >= e.threshold {
		return Block(fmt.Sprintf("High spam score %.2f", ev.Score))
	}
	return Screen("Unknown caller")
}

// callerUpsertBudget bounds the background caller upsert that annotates an
// event with its caller link.
const callerUpsertBudget = 5 * time.Second

// logEvent appends the single call event for this evaluation. Fire-and-forget:
// storage visibility is not ordered with the returned decision. Scored
// evaluations of identified callers upsert the caller row off the decision
// path and stamp its id on the event; per-caller frequency counts join on
// that link.
func (e *Evaluator) logEvent(ev Evaluation, simSlot int) {
	reason := ev.Decision.Reason
	if ev.Scored {
		reason = scoreReason(ev.Score)
	}
	event := store.CallEvent{
		Timestamp: e.now(),
		State:     store.StateEvaluated,
		Decision:  string(ev.Decision.Outcome),
		Reason:    reason,
	}
	if e.callers != nil && !ev.Anonymous && ev.Scored {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), callerUpsertBudget)
			defer cancel()
			c, err := e.callers.FindOrCreateCaller(ctx, ev.Number, ev.Score, event.Timestamp)
			if err != nil {
				e.logger.Warn("caller upsert failed, event stays unlinked", "error", err)
			} else {
				event.CallerID = c.ID
			}
			e.events.Append(event)
		}()
	} else {
		e.events.Append(event)
	}
	e.logger.Info("call evaluated",
		"decision", string(ev.Decision.Outcome),
		"anonymous", ev.Anonymous,
		"sim_slot", simSlot,
	)
}
