package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/centralino/centralino/internal/bot"
	"github.com/centralino/centralino/internal/eventlog"
	"github.com/centralino/centralino/internal/store"
)

// NotificationPublisher is the notification-delivery collaborator.
type NotificationPublisher interface {
	ShowIncomingScreening(number, preview string) error
}

// TranscriptStore persists bot transcripts linked to their call event.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, callEventID uuid.UUID, text, summary string) (uuid.UUID, error)
}

// CallerDirectory upserts caller rows as evaluations come in.
type CallerDirectory interface {
	FindOrCreateCaller(ctx context.Context, e164 string, lastScore float64, seen time.Time) (store.Caller, error)
}

// evaluateBudget bounds the synchronous decision path; the telephony
// collaborator's screening callback has an implicit real-time deadline.
const evaluateBudget = 2 * time.Second

// botSessionBudget bounds one background bot session end to end.
const botSessionBudget = 30 * time.Second

// Service answers the telephony collaborator's screening requests and runs
// everything that follows a decision off the decision path.
type Service struct {
	evaluator    *Evaluator
	orchestrator *bot.Orchestrator
	events       *eventlog.Log
	transcripts  TranscriptStore
	callers      CallerDirectory
	notifier     NotificationPublisher
	logger       *slog.Logger
}

func NewService(evaluator *Evaluator, orchestrator *bot.Orchestrator, events *eventlog.Log, transcripts TranscriptStore, callers CallerDirectory, notifier NotificationPublisher, logger *slog.Logger) *Service {
	return &Service{
		evaluator:    evaluator,
		orchestrator: orchestrator,
		events:       events,
		transcripts:  transcripts,
		callers:      callers,
		notifier:     notifier,
		logger:       logger,
	}
}

// HandleScreenRequest is the request/reply handler for incoming calls. The
// reply is produced synchronously from the evaluator; bot sessions and caller
// bookkeeping are dispatched in the background before the reply returns.
func (s *Service) HandleScreenRequest(data []byte) (any, error) {
	var call IncomingCall
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("parse screening request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), evaluateBudget)
	defer cancel()

	raw := ""
	if call.Number != nil {
		raw = *call.Number
	}
	ev := s.evaluator.Evaluate(ctx, raw, call.SimSlot)

	resp := s.respond(ev)

	if resp.Action == ActionBot {
		go s.runBotSession(ev)
	}

	s.logger.Info("screening response",
		"action", string(resp.Action),
		"decision", string(ev.Decision.Outcome),
		"sim_slot", call.SimSlot,
	)
	return resp, nil
}

// respond maps an admission decision onto the telephony action set. Screen
// becomes a bot engagement for identified callers; anonymous callers are
// silenced, there being no number to screen against.
func (s *Service) respond(ev Evaluation) ScreenResponse {
	switch ev.Decision.Outcome {
	case OutcomeAllow:
		return ScreenResponse{Action: ActionAllow, Reason: ev.Decision.Reason}
	case OutcomeBlock:
		return ScreenResponse{Action: ActionReject, Reason: ev.Decision.Reason}
	default:
		if ev.Anonymous {
			return ScreenResponse{Action: ActionSilence, Reason: ev.Decision.Reason}
		}
		return ScreenResponse{Action: ActionBot, Reason: ev.Decision.Reason}
	}
}

// runBotSession runs one pre-screening dialogue and, on completion, hands the
// transcript to the event store and the notification collaborator. The app
// user is notified even when the audio pipeline degraded.
func (s *Service) runBotSession(ev Evaluation) {
	ctx, cancel := context.WithTimeout(context.Background(), botSessionBudget)
	defer cancel()

	callerNumber := ev.Number
	transcript, err := s.orchestrator.RunPreScreening(ctx, callerNumber)
	if err != nil {
		if errors.Is(err, bot.ErrSessionActive) {
			s.logger.Warn("bot session rejected, another session active", "number", callerNumber)
		} else {
			s.logger.Error("bot session failed", "number", callerNumber, "error", err)
		}
		s.notify(callerNumber, "screening unavailable: "+err.Error())
		return
	}

	summary := bot.Summarize(transcript)

	var callerID uuid.UUID
	if s.callers != nil && callerNumber != "" {
		if c, err := s.callers.FindOrCreateCaller(ctx, callerNumber, ev.Score, time.Now()); err != nil {
			s.logger.Warn("caller upsert failed, event stays unlinked", "error", err)
		} else {
			callerID = c.ID
		}
	}

	eventID, err := s.events.AppendSync(ctx, store.CallEvent{
		CallerID: callerID,
		State:    store.StateScreened,
		Decision: "BOT",
		Reason:   "bot session for " + displayNumber(callerNumber),
	})
	if err != nil {
		s.logger.Error("bot event append failed", "error", err)
	} else if _, err := s.transcripts.SaveTranscript(ctx, eventID, transcript, summary); err != nil {
		s.logger.Error("transcript save failed", "event_id", eventID, "error", err)
	}

	s.notify(callerNumber, summary)
}

func (s *Service) notify(callerNumber, preview string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ShowIncomingScreening(displayNumber(callerNumber), preview); err != nil {
		s.logger.Error("notification failed", "error", err)
	}
}

func displayNumber(e164 string) string {
	if e164 == "" {
		return "unknown"
	}
	return e164
}
