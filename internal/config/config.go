package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string

	RetentionDays int
	SweepInterval time.Duration

	BlockThreshold float64
	RuleWeight     float64
	LearnedWeight  float64

	BotMode       string
	PromptTimeout time.Duration
	ListenTimeout time.Duration

	EventQueueSize int
}

func Load() Config {
	return Config{
		Port:           envInt("CENTRALINO_PORT", 8760),
		NatsURL:        envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:      envStr("NATS_TOKEN", ""),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		RetentionDays:  envInt("RETENTION_DAYS", 30),
		SweepInterval:  envDuration("SWEEP_INTERVAL", 24*time.Hour),
		BlockThreshold: envFloat("BLOCK_THRESHOLD", 0.8),
		RuleWeight:     envFloat("RULE_WEIGHT", 0.8),
		LearnedWeight:  envFloat("LEARNED_WEIGHT", 0.2),
		BotMode:        envStr("BOT_MODE", "local"),
		PromptTimeout:  envDuration("PROMPT_TIMEOUT", 3*time.Second),
		ListenTimeout:  envDuration("LISTEN_TIMEOUT", 10*time.Second),
		EventQueueSize: envInt("EVENT_QUEUE_SIZE", 256),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
