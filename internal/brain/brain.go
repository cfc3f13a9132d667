package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUpstream wraps every completion or transcription provider failure so
// callers can treat them uniformly: abort the turn, surface to the requester
// only, never broadcast.
var ErrUpstream = errors.New("upstream service error")

// Completer issues one completion request against the external language-model
// service.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, model string) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode    string
	HTTPURL string
	APIKey  string
	Timeout time.Duration
}

// NewCompleter builds a completion client for the configured mode.
// "auto" prefers HTTP when a URL is configured and falls back to the
// deterministic mock otherwise.
func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPCompleter(cfg.HTTPURL, cfg.APIKey, cfg.Timeout), nil
		}
		return NewMockCompleter(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("completion HTTP url is required for http mode")
		}
		return NewHTTPCompleter(cfg.HTTPURL, cfg.APIKey, cfg.Timeout), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported completion mode %q", cfg.Mode)
	}
}

// NewTranscriber builds a transcription client for the configured mode.
func NewTranscriber(cfg Config) (Transcriber, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPTranscriber(cfg.HTTPURL, cfg.APIKey, cfg.Timeout), nil
		}
		return NewMockTranscriber(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("transcription HTTP url is required for http mode")
		}
		return NewHTTPTranscriber(cfg.HTTPURL, cfg.APIKey, cfg.Timeout), nil
	case "mock":
		return NewMockTranscriber(), nil
	default:
		return nil, fmt.Errorf("unsupported transcription mode %q", cfg.Mode)
	}
}
