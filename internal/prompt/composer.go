package prompt

import (
	"fmt"
	"strings"

	"github.com/tandemlab/parley/internal/conversation"
)

// Composer builds deterministic system/user prompt text from conversation
// state. Identical inputs always produce identical prompts; all randomness
// lives downstream in the model.
type Composer struct {
	// HistoryWindow bounds how many ledger messages feed the user prompt.
	HistoryWindow int
	// ClaimWindow bounds how many other-party claims are cross-referenced
	// in mediator mode.
	ClaimWindow int
	// SummaryWindow bounds how many messages feed the shared summary.
	SummaryWindow int
}

func NewComposer(historyWindow, claimWindow, summaryWindow int) *Composer {
	if historyWindow <= 0 {
		historyWindow = 40
	}
	if claimWindow <= 0 {
		claimWindow = 6
	}
	if summaryWindow <= 0 {
		summaryWindow = 20
	}
	return &Composer{
		HistoryWindow: historyWindow,
		ClaimWindow:   claimWindow,
		SummaryWindow: summaryWindow,
	}
}

const greeterInstructions = `You are welcoming the first party of a mediation session.
Ask 3-5 short clarifying questions covering:
- the timeline of events
- who is involved
- what outcome they expect
- what evidence or documents exist
Stay warm and neutral. Do not take sides. Do not offer legal advice.`

const mediatorInstructions = `Both parties are present. For this reply:
- summarize 2-3 headline points of the situation so far
- ask 3-6 focused questions, at least two of which neutrally reference
  the other party's claims listed below
- where the parties seem close, you may propose a short mini-summary of
  common ground
Stay strictly neutral. Never repeat one party's private wording to the other.`

// SystemPrompt renders the expert persona preamble for the detected domain
// plus the instruction block for the active mode.
func (c *Composer) SystemPrompt(domain conversation.Domain, mode conversation.Mode) string {
	persona := fmt.Sprintf(
		"You are an experienced, impartial mediator specializing in %s. You listen carefully, de-escalate, and keep every reply short and concrete.",
		conversation.DomainTitle(domain),
	)
	if mode == conversation.ModeMediator {
		return persona + "\n\n" + mediatorInstructions
	}
	return persona + "\n\n" + greeterInstructions
}

// UserPrompt renders the conversation history and, in mediator mode, the
// other party's recent claims as quoted bullets, followed by a fixed task
// instruction.
func (c *Composer) UserPrompt(conv *conversation.Conversation, mode conversation.Mode, currentPartyID string) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	b.WriteString(conv.RecentPlainText(c.HistoryWindow))

	if mode == conversation.ModeMediator {
		if other := conv.OtherParty(currentPartyID); other != nil {
			claims := conv.ClaimsBy(other.ID, c.ClaimWindow)
			if len(claims) > 0 {
				fmt.Fprintf(&b, "\n\nWhat %s has said so far:\n", other.DisplayName)
				for _, cl := range claims {
					fmt.Fprintf(&b, "- %q\n", cl.Text)
				}
			}
		}
	}

	b.WriteString("\nRespond to the sender following your instructions.")
	return b.String()
}

const summarySystemPrompt = `You are a neutral mediator writing a short interim summary for both parties.
Produce at most 5 bullet points of common ground and points of disagreement,
followed by exactly 2 suggested next steps. Use neutral wording. Do not quote
either party verbatim.`

// SummarySystemPrompt is the fixed persona for the shared interim summary.
func (c *Composer) SummarySystemPrompt() string {
	return summarySystemPrompt
}

// SummaryUserPrompt renders the recent history window for the shared summary.
func (c *Composer) SummaryUserPrompt(conv *conversation.Conversation) string {
	return "Conversation so far:\n" + conv.RecentPlainText(c.SummaryWindow) + "\n\nWrite the interim summary."
}
