package mediator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tandemlab/parley/internal/brain"
	"github.com/tandemlab/parley/internal/conversation"
	"github.com/tandemlab/parley/internal/prompt"
)

// Trigger decides whether a mediator turn also produces a shared interim
// summary. It is injectable so tests can force either branch.
type Trigger interface {
	ShouldBroadcast() bool
}

// RandomTrigger fires with a fixed probability per mediator turn. The
// sampling keeps shared summaries organic rather than tied to a message
// count; seed it for reproducible runs.
type RandomTrigger struct {
	mu sync.Mutex
	p  float64
	rn *rand.Rand
}

func NewRandomTrigger(p float64, seed int64) *RandomTrigger {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomTrigger{p: p, rn: rand.New(rand.NewSource(seed))}
}

func (t *RandomTrigger) ShouldBroadcast() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rn.Float64() < t.p
}

// TurnResult carries the two possible outputs of one AI turn.
type TurnResult struct {
	// Private is delivered to the requesting party only.
	Private string
	// Shared is broadcast to the whole room when HasShared is set.
	Shared    string
	HasShared bool
}

// Orchestrator drives one request/response cycle against the completion
// service: compose prompts, complete, optionally produce a shared summary.
type Orchestrator struct {
	completer brain.Completer
	composer  *prompt.Composer
	trigger   Trigger
	timeout   time.Duration
}

func NewOrchestrator(completer brain.Completer, composer *prompt.Composer, trigger Trigger, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{
		completer: completer,
		composer:  composer,
		trigger:   trigger,
		timeout:   timeout,
	}
}

// RunTurn produces the private reply for the sender and, on some mediator
// turns, a shared interim summary. Any completion failure aborts the whole
// turn: the caller must not append an AI message and must surface the error
// to the requester only.
func (o *Orchestrator) RunTurn(ctx context.Context, conv *conversation.Conversation, mode conversation.Mode, partyID string) (TurnResult, error) {
	system := o.composer.SystemPrompt(conv.Domain, mode)
	user := o.composer.UserPrompt(conv, mode, partyID)

	private, err := o.complete(ctx, system, user)
	if err != nil {
		return TurnResult{}, fmt.Errorf("private reply: %w", err)
	}
	result := TurnResult{Private: private}

	if mode != conversation.ModeMediator || o.trigger == nil || !o.trigger.ShouldBroadcast() {
		return result, nil
	}

	shared, err := o.complete(ctx, o.composer.SummarySystemPrompt(), o.composer.SummaryUserPrompt(conv))
	if err != nil {
		return TurnResult{}, fmt.Errorf("shared summary: %w", err)
	}
	result.Shared = shared
	result.HasShared = true
	return result, nil
}

func (o *Orchestrator) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	text, err := o.completer.Complete(ctx, system, user)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: completion timed out: %v", brain.ErrUpstream, err)
		}
		return "", err
	}
	return text, nil
}
