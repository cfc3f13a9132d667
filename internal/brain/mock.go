package brain

import (
	"context"
	"fmt"
	"strings"
)

// MockCompleter provides deterministic local replies when no completion
// endpoint is configured.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	lines := strings.Split(strings.TrimSpace(userPrompt), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			last = l
			break
		}
	}
	if last == "" {
		return "I am listening. What would you like to talk about?", nil
	}
	return fmt.Sprintf("I hear you. You said: %s\nCould you tell me more about how this started?", last), nil
}

// MockTranscriber returns a fixed transcript, letting the pipeline run
// end-to-end without a speech-to-text backend.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, model string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", ErrUpstream)
	}
	return fmt.Sprintf("(transcribed %d bytes of audio)", len(audio)), nil
}
