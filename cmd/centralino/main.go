package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centralino/centralino/internal/api"
	"github.com/centralino/centralino/internal/bot"
	"github.com/centralino/centralino/internal/bus"
	"github.com/centralino/centralino/internal/config"
	"github.com/centralino/centralino/internal/contacts"
	"github.com/centralino/centralino/internal/eventlog"
	"github.com/centralino/centralino/internal/notify"
	"github.com/centralino/centralino/internal/retention"
	"github.com/centralino/centralino/internal/scoring"
	"github.com/centralino/centralino/internal/screening"
	"github.com/centralino/centralino/internal/speech"
	"github.com/centralino/centralino/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("centralino starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// NATS
	busClient, err := bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Event log with background persistence
	events := eventlog.New(db, busClient, bus.SubjectEventAppended, cfg.EventQueueSize, slog.Default())
	go events.Run(ctx)

	// Scoring ensemble
	scorer := scoring.NewEnsembleScorer(
		scoring.NewRuleScorer(nil),
		scoring.LearnedScorer{},
		cfg.RuleWeight,
		cfg.LearnedWeight,
	)

	// Evaluator over the contacts directory and the stored rule set
	directory := contacts.NewClient(busClient)
	evaluator := screening.NewEvaluator(directory, scorer, db, db, db, events, cfg.BlockThreshold, slog.Default())

	// Bot orchestrator over the speech bridge
	mode, err := bot.ParseMode(cfg.BotMode)
	if err != nil {
		slog.Error("invalid BOT_MODE", "error", err)
		os.Exit(1)
	}
	modeCell := bot.NewModeCell(mode)
	speaker := speech.NewSpeaker(busClient, slog.Default())
	recognizer := speech.NewRecognizer(busClient, slog.Default())
	focus := speech.NewFocus(busClient, slog.Default())
	orchestrator := bot.New(modeCell, speaker, recognizer, focus, nil, cfg.PromptTimeout, cfg.ListenTimeout, slog.Default())

	// Screening service — the request/reply entry point for telephony
	notifier := notify.NewPublisher(busClient, slog.Default())
	svc := screening.NewService(evaluator, orchestrator, events, db, db, notifier, slog.Default())
	if err := busClient.Respond(bus.SubjectScreenRequest, svc.HandleScreenRequest); err != nil {
		slog.Error("failed to subscribe to screening requests", "error", err)
		os.Exit(1)
	}

	// Retention sweeper
	sweeper := retention.NewSweeper(db, cfg.RetentionDays, cfg.SweepInterval, slog.Default())
	go sweeper.Run(ctx)

	// HTTP API
	srv := api.NewServer(cfg.Port, events, db, modeCell, orchestrator.State, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce readiness
	if err := busClient.Publish("centralino.service.ready", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"bot_mode":  string(mode),
	}); err != nil {
		slog.Warn("failed to publish readiness", "error", err)
	}

	slog.Info("centralino ready", "port", cfg.Port, "bot_mode", string(mode))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("centralino stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
