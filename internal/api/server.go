package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/centralino/centralino/internal/bot"
	"github.com/centralino/centralino/internal/eventlog"
	"github.com/centralino/centralino/internal/store"
)

const defaultEventLimit = 50

// TranscriptReader fetches the transcript attached to a screened call event.
type TranscriptReader interface {
	TranscriptByEvent(ctx context.Context, callEventID uuid.UUID) (store.Transcript, error)
}

type Server struct {
	router      *chi.Mux
	port        int
	events      *eventlog.Log
	transcripts TranscriptReader
	mode        *bot.ModeCell
	botState    func() bot.State
	logger      *slog.Logger
}

func NewServer(port int, events *eventlog.Log, transcripts TranscriptReader, mode *bot.ModeCell, botState func() bot.State, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:      router,
		port:        port,
		events:      events,
		transcripts: transcripts,
		mode:        mode,
		botState:    botState,
		logger:      logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)
	router.Get("/api/v1/events", s.listEvents)
	router.Get("/api/v1/events/stream", s.streamEvents)
	router.Get("/api/v1/events/{id}/transcript", s.transcript)
	router.Get("/api/v1/mode", s.getMode)
	router.Put("/api/v1/mode", s.putMode)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "centralino",
		"bot_mode":       string(s.mode.Get()),
		"bot_state":      string(s.botState()),
		"events_dropped": s.events.Dropped(),
	})
}

type eventView struct {
	ID        uuid.UUID `json:"id"`
	CallerID  string    `json:"caller_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason"`
}

func viewOf(ev store.CallEvent) eventView {
	v := eventView{
		ID:        ev.ID,
		Timestamp: ev.Timestamp,
		State:     ev.State,
		Decision:  ev.Decision,
		Reason:    ev.Reason,
	}
	if ev.CallerID != uuid.Nil {
		v.CallerID = ev.CallerID.String()
	}
	return v
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, viewOf(ev))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) transcript(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	tr, err := s.transcripts.TranscriptByEvent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no transcript for event")
		return
	}
	if err != nil {
		s.logger.Error("failed to load transcript", "event_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":            tr.ID.String(),
		"call_event_id": tr.CallEventID.String(),
		"text":          tr.Text,
		"summary":       tr.Summary,
	})
}

func (s *Server) getMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(s.mode.Get())})
}

func (s *Server) putMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := bot.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mode.Set(mode)
	s.logger.Info("bot mode updated", "mode", string(mode))
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

// streamEvents serves the live event feed over SSE: a snapshot of recent
// events first, then appended events as they are persisted.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	snapshot, updates, cancel, err := s.events.Subscribe(r.Context())
	if err != nil {
		s.logger.Error("failed to subscribe to event feed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, ev := range snapshot {
		if err := writeSSE(w, ev); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-updates:
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev store.CallEvent) error {
	data, err := json.Marshal(viewOf(ev))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
