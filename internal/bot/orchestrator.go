// Package bot runs the automated voice pre-screening dialogue.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is the orchestrator's position in the Local-mode dialogue.
type State string

const (
	StateIdle           State = "idle"
	StateAcquiringFocus State = "acquiring_focus"
	StatePrompting      State = "prompting"
	StateListening      State = "listening"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// Prompt spoken to the caller before listening.
const Prompt = "This number screens unknown callers. Please state your name and the reason for your call."

// Fallback transcripts. The caller-facing flow never raises on audio trouble;
// it degrades to one of these.
const (
	TranscriptNoResponse  = "no useful response"
	TranscriptListenError = "error during listening"
	TranscriptNoMicAccess = "missing microphone permission"
	TranscriptForwarded   = "call forwarded"
)

// ErrSessionActive is returned when a session is requested while another is
// running. There is a single shared audio device, so concurrent sessions are
// rejected rather than queued: by the time a queued session could start, the
// caller it was meant to screen is gone.
var ErrSessionActive = errors.New("pre-screening session already active")

// Orchestrator serializes pre-screening sessions over the shared audio
// resources. Safe for concurrent use; at most one session runs at a time.
type Orchestrator struct {
	mode       *ModeCell
	speaker    Speaker
	recognizer Recognizer
	focus      AudioFocus
	hasMic     func() bool

	promptTimeout time.Duration
	listenTimeout time.Duration
	logger        *slog.Logger

	sessionMu sync.Mutex
	state     atomic.Value // State
}

func New(mode *ModeCell, speaker Speaker, recognizer Recognizer, focus AudioFocus, hasMic func() bool, promptTimeout, listenTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		mode:          mode,
		speaker:       speaker,
		recognizer:    recognizer,
		focus:         focus,
		hasMic:        hasMic,
		promptTimeout: promptTimeout,
		listenTimeout: listenTimeout,
		logger:        logger,
	}
	o.state.Store(StateIdle)
	return o
}

// State reports the running session's phase, or the previous session's
// terminal state (Completed or Failed) when none is running. Idle means no
// session has run yet.
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(s)
	o.logger.Debug("bot state", "state", string(s))
}

// RunPreScreening runs one pre-screening session for number and returns the
// best transcript obtained. The mode cell is read here, not latched earlier,
// so runtime mode changes take effect per session. Returns ErrSessionActive
// if another session holds the audio device, or ctx.Err() on external
// cancellation; every exit path releases all acquired audio resources.
func (o *Orchestrator) RunPreScreening(ctx context.Context, callerNumber string) (string, error) {
	switch o.mode.Get() {
	case ModeForwarding:
		return o.runForwarding(callerNumber)
	default:
		return o.runLocal(ctx, callerNumber)
	}
}

// runForwarding is the forwarding stub: no audio resources are engaged.
func (o *Orchestrator) runForwarding(callerNumber string) (string, error) {
	o.logger.Info("forwarding mode engaged", "number", callerNumber)
	return TranscriptForwarded, nil
}

func (o *Orchestrator) runLocal(ctx context.Context, callerNumber string) (transcript string, err error) {
	if !o.sessionMu.TryLock() {
		return "", ErrSessionActive
	}
	defer o.sessionMu.Unlock()

	if o.hasMic != nil && !o.hasMic() {
		o.setState(StateFailed)
		return TranscriptNoMicAccess, nil
	}

	o.setState(StateAcquiringFocus)
	gotFocus := o.focus.Request()
	if !gotFocus {
		// Best-effort: continue degraded.
		o.logger.Warn("audio focus not granted, continuing", "number", callerNumber)
	}

	// Cleanup is unconditional and sequenced: recognizer first, then
	// synthesizer, then focus, on every exit path including cancellation
	// and panics.
	defer func() {
		o.recognizer.Cancel()
		o.recognizer.Destroy()
		o.speaker.Stop()
		o.speaker.Shutdown()
		if gotFocus {
			o.focus.Release()
		}
	}()

	o.prompt(ctx)

	o.setState(StateListening)
	transcript = o.listen(ctx)

	if err := ctx.Err(); err != nil {
		o.setState(StateFailed)
		return "", err
	}

	o.setState(StateCompleted)
	o.logger.Info("pre-screening completed", "number", callerNumber, "transcript_len", len(transcript))
	return transcript, nil
}

// prompt synthesizes the fixed prompt and waits for completion or the prompt
// timeout, whichever comes first. Either outcome advances the session.
func (o *Orchestrator) prompt(ctx context.Context) {
	o.setState(StatePrompting)

	promptCtx, cancel := context.WithTimeout(ctx, o.promptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- o.speaker.Speak(promptCtx, Prompt)
	}()

	select {
	case err := <-done:
		if err != nil {
			o.logger.Warn("prompt synthesis failed, continuing", "error", err)
		}
	case <-promptCtx.Done():
		o.logger.Debug("prompt timed out")
	}
}

// listen runs the recognition phase, tracking the best partial seen so far as
// a fallback if no final result arrives before the listen timeout.
func (o *Orchestrator) listen(ctx context.Context) string {
	listenCtx, cancel := context.WithTimeout(ctx, o.listenTimeout)
	defer cancel()

	hyps, err := o.recognizer.Listen(listenCtx)
	if err != nil {
		o.logger.Warn("recognizer failed to start", "error", err)
		return TranscriptListenError
	}

	best := ""
	for {
		select {
		case h, ok := <-hyps:
			if !ok {
				// Engine error or end of stream without a final result.
				if best != "" {
					return best
				}
				return TranscriptListenError
			}
			if strings.TrimSpace(h.Text) != "" {
				best = h.Text
			}
			if h.Final {
				if best == "" {
					return TranscriptNoResponse
				}
				return best
			}
		case <-listenCtx.Done():
			if best != "" {
				return best
			}
			return TranscriptNoResponse
		}
	}
}

// Summarize trims a transcript and truncates it to 200 characters, marking
// truncation with an ellipsis. Pure.
func Summarize(text string) string {
	t := strings.TrimSpace(text)
	runes := []rune(t)
	if len(runes) <= 200 {
		return t
	}
	return string(runes[:197]) + "…"
}
