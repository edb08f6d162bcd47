// Package speech bridges the bot orchestrator to the external TTS/ASR
// engines over the bus.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/centralino/centralino/internal/bot"
	"github.com/centralino/centralino/internal/bus"
)

// Bus is the slice of the bus client the speech bridge uses.
type Bus interface {
	Publish(subject string, data any) error
	Request(ctx context.Context, subject string, req any, out any) error
	SubscribeChan(subject string) (<-chan []byte, func(), error)
}

type sayRequest struct {
	Text string `json:"text"`
}

type sayReply struct {
	Done bool `json:"done"`
}

type listenRequest struct {
	Start bool `json:"start"`
}

// hypothesis is the wire format of one recognizer result.
type hypothesis struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type focusRequest struct {
	Acquire bool `json:"acquire"`
}

type focusReply struct {
	Granted bool `json:"granted"`
}

// Speaker implements bot.Speaker over the TTS collaborator.
type Speaker struct {
	bus    Bus
	logger *slog.Logger
}

func NewSpeaker(b Bus, logger *slog.Logger) *Speaker {
	return &Speaker{bus: b, logger: logger}
}

// Speak requests synthesis and returns when the engine reports completion or
// ctx expires.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	var reply sayReply
	if err := s.bus.Request(ctx, bus.SubjectSpeechSay, sayRequest{Text: text}, &reply); err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}
	return nil
}

func (s *Speaker) Stop() {
	if err := s.bus.Publish(bus.SubjectSpeechSay+".stop", sayRequest{}); err != nil {
		s.logger.Debug("speaker stop publish failed", "error", err)
	}
}

func (s *Speaker) Shutdown() {
	if err := s.bus.Publish(bus.SubjectSpeechSay+".shutdown", sayRequest{}); err != nil {
		s.logger.Debug("speaker shutdown publish failed", "error", err)
	}
}

// Recognizer implements bot.Recognizer over the ASR collaborator. Hypotheses
// stream in on the listen results subject; a session ends with a final
// hypothesis, a timeout upstream, or Cancel.
type Recognizer struct {
	bus    Bus
	logger *slog.Logger

	unsub func()
}

func NewRecognizer(b Bus, logger *slog.Logger) *Recognizer {
	return &Recognizer{bus: b, logger: logger}
}

func (r *Recognizer) Listen(ctx context.Context) (<-chan bot.Hypothesis, error) {
	raw, unsub, err := r.bus.SubscribeChan(bus.SubjectSpeechListen + ".results")
	if err != nil {
		return nil, fmt.Errorf("subscribe recognition results: %w", err)
	}
	r.unsub = unsub

	if err := r.bus.Publish(bus.SubjectSpeechListen, listenRequest{Start: true}); err != nil {
		unsub()
		r.unsub = nil
		return nil, fmt.Errorf("start recognition: %w", err)
	}

	out := make(chan bot.Hypothesis)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-raw:
				if !ok {
					return
				}
				var h hypothesis
				if err := json.Unmarshal(data, &h); err != nil {
					r.logger.Warn("malformed hypothesis dropped", "error", err)
					continue
				}
				select {
				case out <- bot.Hypothesis{Text: h.Text, Final: h.Final}:
				case <-ctx.Done():
					return
				}
				if h.Final {
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Recognizer) Cancel() {
	if err := r.bus.Publish(bus.SubjectSpeechListen+".cancel", listenRequest{}); err != nil {
		r.logger.Debug("recognizer cancel publish failed", "error", err)
	}
}

func (r *Recognizer) Destroy() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}

// Focus implements bot.AudioFocus over the audio-device arbiter. A failed or
// slow grant degrades to "not granted"; the orchestrator continues anyway.
type Focus struct {
	bus    Bus
	logger *slog.Logger
}

func NewFocus(b Bus, logger *slog.Logger) *Focus {
	return &Focus{bus: b, logger: logger}
}

func (f *Focus) Request() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var reply focusReply
	if err := f.bus.Request(ctx, bus.SubjectAudioFocus, focusRequest{Acquire: true}, &reply); err != nil {
		f.logger.Debug("audio focus request failed", "error", err)
		return false
	}
	return reply.Granted
}

func (f *Focus) Release() {
	if err := f.bus.Publish(bus.SubjectAudioFocus, focusRequest{Acquire: false}); err != nil {
		f.logger.Debug("audio focus release publish failed", "error", err)
	}
}
