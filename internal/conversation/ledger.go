package conversation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaimConfidenceDefault is attached to every extracted claim until claim
// scoring exists.
const ClaimConfidenceDefault = "med"

// AppendMessage constructs and appends a message, returning the stored record
// for immediate delivery. Messages are never mutated or deleted after append;
// visibility only affects routing, every message is stored.
func (c *Conversation) AppendMessage(authorID string, role Role, text string, visibleTo Visibility) Message {
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: c.ID,
		AuthorID:       authorID,
		Role:           role,
		Text:           text,
		VisibleTo:      visibleTo,
		CreatedAt:      time.Now().UTC(),
	}
	c.Messages = append(c.Messages, m)
	return m
}

// RecentPlainText renders the last n messages as "<speaker>: <text>" lines,
// oldest first, for use as model context. Fewer than n messages yields all of
// them.
func (c *Conversation) RecentPlainText(n int) string {
	msgs := c.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, c.DisplayNameOf(m.AuthorID)+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

// ExtractClaims splits text on sentence-terminal punctuation, appends one
// claim per non-empty fragment and returns the appended claims. Empty text
// yields none.
func (c *Conversation) ExtractClaims(partyID, text string) []Claim {
	fragments := splitSentences(text)
	if len(fragments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	appended := make([]Claim, 0, len(fragments))
	for _, f := range fragments {
		cl := Claim{
			ID:             uuid.NewString(),
			ConversationID: c.ID,
			PartyID:        partyID,
			Text:           f,
			Tags:           []string{},
			Confidence:     ClaimConfidenceDefault,
			CreatedAt:      now,
		}
		c.Claims = append(c.Claims, cl)
		appended = append(appended, cl)
	}
	return appended
}

// ClaimsBy returns the last limit claims authored by partyID, oldest first.
func (c *Conversation) ClaimsBy(partyID string, limit int) []Claim {
	var out []Claim
	for _, cl := range c.Claims {
		if cl.PartyID == partyID {
			out = append(out, cl)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func isTerminal(r byte) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences cuts text at '.', '!' or '?' followed by whitespace or end
// of input, trims each fragment and drops the empty ones. The terminal
// punctuation itself is stripped.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}
		if f := strings.TrimSpace(trimTrailingTerminals(text[start:i])); f != "" {
			out = append(out, f)
		}
		start = i + 1
	}
	if f := strings.TrimSpace(trimTrailingTerminals(text[start:])); f != "" {
		out = append(out, f)
	}
	return out
}

func trimTrailingTerminals(s string) string {
	for len(s) > 0 && isTerminal(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
