package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the mediation service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	// ConversationTTL expires idle conversations; 0 keeps them for the
	// process lifetime.
	ConversationTTL time.Duration
	SummaryCacheTTL time.Duration

	HistoryWindow int
	ClaimWindow   int
	SummaryWindow int

	// BroadcastProbability is the chance a mediator turn also produces a
	// shared interim summary.
	BroadcastProbability float64

	CompletionMode    string
	CompletionHTTPURL string
	CompletionAPIKey  string
	CompletionTimeout time.Duration

	TranscribeMode          string
	TranscribeHTTPURL       string
	TranscribeAPIKey        string
	TranscribeModel         string
	TranscribeFallbackModel string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:        envOrDefault("APP_METRICS_NAMESPACE", "parley"),
		AllowAnyOrigin:          false,
		ShutdownTimeout:         15 * time.Second,
		ConversationTTL:         0,
		SummaryCacheTTL:         5 * time.Minute,
		HistoryWindow:           40,
		ClaimWindow:             6,
		SummaryWindow:           20,
		BroadcastProbability:    0.25,
		CompletionMode:          envOrDefault("COMPLETION_MODE", "auto"),
		CompletionHTTPURL:       envTrimmed("COMPLETION_HTTP_URL"),
		CompletionAPIKey:        envTrimmed("COMPLETION_API_KEY"),
		CompletionTimeout:       30 * time.Second,
		TranscribeMode:          envOrDefault("TRANSCRIBE_MODE", "auto"),
		TranscribeHTTPURL:       envTrimmed("TRANSCRIBE_HTTP_URL"),
		TranscribeAPIKey:        envTrimmed("TRANSCRIBE_API_KEY"),
		TranscribeModel:         envOrDefault("TRANSCRIBE_MODEL", "whisper-1"),
		TranscribeFallbackModel: envOrDefault("TRANSCRIBE_FALLBACK_MODEL", "gpt-4o-mini-transcribe"),
		DatabaseURL:             envTrimmed("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ConversationTTL, err = durationFromEnv("CONVERSATION_TTL", cfg.ConversationTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SummaryCacheTTL, err = durationFromEnv("SUMMARY_CACHE_TTL", cfg.SummaryCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.ClaimWindow, err = intFromEnv("CLAIM_WINDOW", cfg.ClaimWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.SummaryWindow, err = intFromEnv("SUMMARY_WINDOW", cfg.SummaryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.BroadcastProbability, err = floatFromEnv("BROADCAST_PROBABILITY", cfg.BroadcastProbability)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	// Transcription shares the completion key unless its own is set.
	if cfg.TranscribeAPIKey == "" {
		cfg.TranscribeAPIKey = cfg.CompletionAPIKey
	}

	// DATABASE_URL switches the archive to Postgres; the persistent variant
	// keeps conversations for 7 days unless configured otherwise.
	if cfg.DatabaseURL != "" && os.Getenv("CONVERSATION_TTL") == "" {
		cfg.ConversationTTL = 7 * 24 * time.Hour
	}

	if cfg.ConversationTTL < 0 {
		return Config{}, fmt.Errorf("CONVERSATION_TTL must not be negative")
	}
	if cfg.SummaryCacheTTL <= 0 {
		return Config{}, fmt.Errorf("SUMMARY_CACHE_TTL must be positive")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	if cfg.ClaimWindow <= 0 {
		return Config{}, fmt.Errorf("CLAIM_WINDOW must be positive")
	}
	if cfg.SummaryWindow <= 0 {
		return Config{}, fmt.Errorf("SUMMARY_WINDOW must be positive")
	}
	if cfg.BroadcastProbability < 0 || cfg.BroadcastProbability > 1 {
		return Config{}, fmt.Errorf("BROADCAST_PROBABILITY must be between 0 and 1")
	}
	if cfg.CompletionTimeout <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
