package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tandemlab/parley/internal/archive"
	"github.com/tandemlab/parley/internal/brain"
	"github.com/tandemlab/parley/internal/config"
	"github.com/tandemlab/parley/internal/conversation"
	"github.com/tandemlab/parley/internal/gateway"
	"github.com/tandemlab/parley/internal/httpapi"
	"github.com/tandemlab/parley/internal/mediator"
	"github.com/tandemlab/parley/internal/observability"
	"github.com/tandemlab/parley/internal/prompt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := archive.NewStore(ctx, cfg.DatabaseURL, cfg.ConversationTTL, cfg.SummaryCacheTTL)
	if err != nil {
		log.Fatalf("archive store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("archive: postgres (retention %s)", cfg.ConversationTTL)
	} else {
		log.Printf("archive: in-memory")
	}

	completer, err := brain.NewCompleter(brain.Config{
		Mode:    cfg.CompletionMode,
		HTTPURL: cfg.CompletionHTTPURL,
		APIKey:  cfg.CompletionAPIKey,
		Timeout: cfg.CompletionTimeout,
	})
	if err != nil {
		log.Fatalf("completion client init failed: %v", err)
	}

	baseTranscriber, err := brain.NewTranscriber(brain.Config{
		Mode:    cfg.TranscribeMode,
		HTTPURL: cfg.TranscribeHTTPURL,
		APIKey:  cfg.TranscribeAPIKey,
		Timeout: cfg.CompletionTimeout,
	})
	if err != nil {
		log.Fatalf("transcription client init failed: %v", err)
	}
	transcriber := brain.NewFallbackTranscriber(baseTranscriber, cfg.TranscribeModel, cfg.TranscribeFallbackModel)

	registry := conversation.NewRegistry(cfg.ConversationTTL)
	registry.SetExpireHook(func(_ *conversation.Conversation) {
		metrics.ConversationEvents.WithLabelValues("expired").Inc()
		metrics.ActiveConversations.Set(float64(registry.ActiveCount()))
	})

	composer := prompt.NewComposer(cfg.HistoryWindow, cfg.ClaimWindow, cfg.SummaryWindow)
	trigger := mediator.NewRandomTrigger(cfg.BroadcastProbability, 0)
	orchestrator := mediator.NewOrchestrator(completer, composer, trigger, cfg.CompletionTimeout)
	gw := gateway.New(registry, orchestrator, store, metrics)

	api := httpapi.New(cfg, registry, gw, store, transcriber, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	registry.StartJanitor(runCtx, time.Minute)
	if pg, ok := store.(*archive.PostgresStore); ok {
		pg.StartSweeper(runCtx, time.Hour)
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
