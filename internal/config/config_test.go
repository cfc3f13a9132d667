package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.ConversationTTL != 0 {
		t.Fatalf("ConversationTTL = %v, want 0 (process lifetime)", cfg.ConversationTTL)
	}
	if cfg.SummaryCacheTTL != 5*time.Minute {
		t.Fatalf("SummaryCacheTTL = %v, want 5m", cfg.SummaryCacheTTL)
	}
	if cfg.HistoryWindow != 40 || cfg.ClaimWindow != 6 || cfg.SummaryWindow != 20 {
		t.Fatalf("window defaults = %d/%d/%d, want 40/6/20", cfg.HistoryWindow, cfg.ClaimWindow, cfg.SummaryWindow)
	}
	if cfg.BroadcastProbability != 0.25 {
		t.Fatalf("BroadcastProbability = %v, want 0.25", cfg.BroadcastProbability)
	}
	if cfg.CompletionMode != "auto" {
		t.Fatalf("CompletionMode = %q, want %q", cfg.CompletionMode, "auto")
	}
}

func TestLoadPersistentVariantDefaultsTTL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parley")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConversationTTL != 7*24*time.Hour {
		t.Fatalf("ConversationTTL = %v, want 7 days for persistent variant", cfg.ConversationTTL)
	}
}

func TestLoadExplicitTTLWinsOverPersistentDefault(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parley")
	t.Setenv("CONVERSATION_TTL", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConversationTTL != 48*time.Hour {
		t.Fatalf("ConversationTTL = %v, want 48h", cfg.ConversationTTL)
	}
}

func TestLoadTranscribeKeyFallsBackToCompletionKey(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("COMPLETION_API_KEY", "shared-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TranscribeAPIKey != "shared-key" {
		t.Fatalf("TranscribeAPIKey = %q, want the completion key", cfg.TranscribeAPIKey)
	}

	t.Setenv("TRANSCRIBE_API_KEY", "stt-key")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TranscribeAPIKey != "stt-key" {
		t.Fatalf("TranscribeAPIKey = %q, want the dedicated key", cfg.TranscribeAPIKey)
	}
}

func TestLoadRejectsBadProbability(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BROADCAST_PROBABILITY", "1.5")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject BROADCAST_PROBABILITY > 1")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"CONVERSATION_TTL",
		"SUMMARY_CACHE_TTL",
		"HISTORY_WINDOW",
		"CLAIM_WINDOW",
		"SUMMARY_WINDOW",
		"BROADCAST_PROBABILITY",
		"COMPLETION_MODE",
		"COMPLETION_HTTP_URL",
		"COMPLETION_API_KEY",
		"COMPLETION_TIMEOUT",
		"TRANSCRIBE_MODE",
		"TRANSCRIBE_HTTP_URL",
		"TRANSCRIBE_API_KEY",
		"TRANSCRIBE_MODEL",
		"TRANSCRIBE_FALLBACK_MODEL",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
