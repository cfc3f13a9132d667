package brain

import (
	"context"
	"errors"
	"fmt"
)

// FallbackTranscriber retries a failed transcription once against a secondary
// model. Only retryable upstream failures trigger the fallback; context
// cancellation and permanent errors propagate unchanged.
type FallbackTranscriber struct {
	inner         Transcriber
	primaryModel  string
	fallbackModel string
}

func NewFallbackTranscriber(inner Transcriber, primaryModel, fallbackModel string) *FallbackTranscriber {
	return &FallbackTranscriber{
		inner:         inner,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
	}
}

// Transcribe runs the primary model and, on a retryable failure, the fallback
// model. The model argument is ignored; models come from configuration.
func (f *FallbackTranscriber) Transcribe(ctx context.Context, audio []byte, _ string) (string, error) {
	text, err := f.inner.Transcribe(ctx, audio, f.primaryModel)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	var retryable *RetryableError
	if f.fallbackModel == "" || f.fallbackModel == f.primaryModel || !errors.As(err, &retryable) {
		return "", err
	}

	text, fallbackErr := f.inner.Transcribe(ctx, audio, f.fallbackModel)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary model %q: %w; fallback model %q: %v", f.primaryModel, err, f.fallbackModel, fallbackErr)
	}
	return text, nil
}
