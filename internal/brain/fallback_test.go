package brain

import (
	"context"
	"errors"
	"testing"
)

type scriptedTranscriber struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (s *scriptedTranscriber) Transcribe(_ context.Context, _ []byte, model string) (string, error) {
	s.calls = append(s.calls, model)
	if err := s.errs[model]; err != nil {
		return "", err
	}
	return s.results[model], nil
}

func TestFallbackTranscriberPrimarySucceeds(t *testing.T) {
	inner := &scriptedTranscriber{results: map[string]string{"primary": "hello"}}
	f := NewFallbackTranscriber(inner, "primary", "secondary")

	text, err := f.Transcribe(context.Background(), []byte("audio"), "")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello" {
		t.Fatalf("text = %q, want %q", text, "hello")
	}
	if len(inner.calls) != 1 || inner.calls[0] != "primary" {
		t.Fatalf("calls = %v, want [primary]", inner.calls)
	}
}

func TestFallbackTranscriberRetriesOnRetryable(t *testing.T) {
	inner := &scriptedTranscriber{
		results: map[string]string{"secondary": "recovered"},
		errs:    map[string]error{"primary": &RetryableError{Err: errors.New("rate limited")}},
	}
	f := NewFallbackTranscriber(inner, "primary", "secondary")

	text, err := f.Transcribe(context.Background(), []byte("audio"), "")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "recovered" {
		t.Fatalf("text = %q, want %q", text, "recovered")
	}
	if len(inner.calls) != 2 || inner.calls[1] != "secondary" {
		t.Fatalf("calls = %v, want [primary secondary]", inner.calls)
	}
}

func TestFallbackTranscriberPermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("bad audio format")
	inner := &scriptedTranscriber{errs: map[string]error{"primary": permanent}}
	f := NewFallbackTranscriber(inner, "primary", "secondary")

	if _, err := f.Transcribe(context.Background(), []byte("audio"), ""); !errors.Is(err, permanent) {
		t.Fatalf("error = %v, want permanent error", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("calls = %v, want only primary", inner.calls)
	}
}

func TestFallbackTranscriberContextCancelNotRetried(t *testing.T) {
	inner := &scriptedTranscriber{errs: map[string]error{"primary": context.Canceled}}
	f := NewFallbackTranscriber(inner, "primary", "secondary")

	if _, err := f.Transcribe(context.Background(), []byte("audio"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(inner.calls) != 1 {
		t.Fatalf("calls = %v, want only primary", inner.calls)
	}
}
