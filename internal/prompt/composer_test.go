package prompt

import (
	"strings"
	"testing"

	"github.com/tandemlab/parley/internal/conversation"
)

func TestSystemPromptByMode(t *testing.T) {
	c := NewComposer(40, 6, 20)

	greeter := c.SystemPrompt(conversation.DomainFamily, conversation.ModeGreeter)
	if !strings.Contains(greeter, "family and relationship disputes") {
		t.Fatalf("greeter prompt missing domain persona: %q", greeter)
	}
	if !strings.Contains(greeter, "clarifying questions") {
		t.Fatalf("greeter prompt missing greeter instructions: %q", greeter)
	}

	mediator := c.SystemPrompt(conversation.DomainContract, conversation.ModeMediator)
	if !strings.Contains(mediator, "contract and debt disputes") {
		t.Fatalf("mediator prompt missing domain persona: %q", mediator)
	}
	if !strings.Contains(mediator, "Both parties are present") {
		t.Fatalf("mediator prompt missing mediator instructions: %q", mediator)
	}
}

func TestUserPromptIncludesOtherPartyClaims(t *testing.T) {
	r := conversation.NewRegistry(0)
	conv := r.Create("")
	alice, _ := r.Join(conv.ID, "Alice")
	bob, _ := r.Join(conv.ID, "Bob")

	conv.AppendMessage(alice.ID, conversation.RoleUser, "He never paid me back.", conversation.VisibleToAuthor)
	conv.ExtractClaims(alice.ID, "He never paid me back.")
	conv.AppendMessage(bob.ID, conversation.RoleUser, "I already paid half.", conversation.VisibleToAuthor)
	conv.ExtractClaims(bob.ID, "I already paid half.")

	c := NewComposer(40, 6, 20)
	got := c.UserPrompt(conv, conversation.ModeMediator, alice.ID)

	if !strings.Contains(got, "Alice: He never paid me back.") {
		t.Fatalf("user prompt missing history: %q", got)
	}
	if !strings.Contains(got, "What Bob has said so far:") {
		t.Fatalf("user prompt missing other-party section: %q", got)
	}
	if !strings.Contains(got, `- "I already paid half"`) {
		t.Fatalf("user prompt missing quoted claim bullet: %q", got)
	}
}

func TestUserPromptGreeterOmitsClaims(t *testing.T) {
	r := conversation.NewRegistry(0)
	conv := r.Create("")
	alice, _ := r.Join(conv.ID, "Alice")
	conv.AppendMessage(alice.ID, conversation.RoleUser, "Hello.", conversation.VisibleToAuthor)
	conv.ExtractClaims(alice.ID, "Hello.")

	c := NewComposer(40, 6, 20)
	got := c.UserPrompt(conv, conversation.ModeGreeter, alice.ID)
	if strings.Contains(got, "has said so far") {
		t.Fatalf("greeter prompt should not cross-reference claims: %q", got)
	}
}

func TestUserPromptDeterministic(t *testing.T) {
	r := conversation.NewRegistry(0)
	conv := r.Create("")
	alice, _ := r.Join(conv.ID, "Alice")
	bob, _ := r.Join(conv.ID, "Bob")
	conv.AppendMessage(alice.ID, conversation.RoleUser, "First.", conversation.VisibleToAuthor)
	conv.ExtractClaims(bob.ID, "Counterpoint.")

	c := NewComposer(40, 6, 20)
	a := c.UserPrompt(conv, conversation.ModeMediator, alice.ID)
	b := c.UserPrompt(conv, conversation.ModeMediator, alice.ID)
	if a != b {
		t.Fatalf("prompt not deterministic:\n%q\n%q", a, b)
	}
}

func TestSummaryPrompts(t *testing.T) {
	r := conversation.NewRegistry(0)
	conv := r.Create("")
	alice, _ := r.Join(conv.ID, "Alice")
	conv.AppendMessage(alice.ID, conversation.RoleUser, "Point one.", conversation.VisibleToAuthor)

	c := NewComposer(40, 6, 20)
	if got := c.SummarySystemPrompt(); !strings.Contains(got, "5 bullet points") || !strings.Contains(got, "2 suggested next steps") {
		t.Fatalf("summary system prompt missing bounds: %q", got)
	}
	if got := c.SummaryUserPrompt(conv); !strings.Contains(got, "Alice: Point one.") {
		t.Fatalf("summary user prompt missing history: %q", got)
	}
}
