package conversation

import (
	"strings"
	"testing"
)

func newTestConversation(t *testing.T, names ...string) (*Registry, *Conversation, []*Participant) {
	t.Helper()
	r := NewRegistry(0)
	c := r.Create("")
	parties := make([]*Participant, 0, len(names))
	for _, name := range names {
		p, err := r.Join(c.ID, name)
		if err != nil {
			t.Fatalf("Join(%q) error = %v", name, err)
		}
		parties = append(parties, p)
	}
	return r, c, parties
}

func TestAppendMessageRoundTrip(t *testing.T) {
	_, c, parties := newTestConversation(t, "Alice")
	m := c.AppendMessage(parties[0].ID, RoleUser, "hello there", VisibleToAuthor)
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("stored message missing id or timestamp: %+v", m)
	}

	if len(c.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(c.Messages))
	}
	got := c.Messages[0]
	if got.Text != "hello there" || got.AuthorID != parties[0].ID || got.Role != RoleUser {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestRecentPlainTextWindowAndOrder(t *testing.T) {
	_, c, parties := newTestConversation(t, "Alice")
	alice := parties[0].ID
	for _, text := range []string{"one", "two", "three", "four"} {
		c.AppendMessage(alice, RoleUser, text, VisibleToAuthor)
	}
	c.AppendMessage(AIAuthorID, RoleAI, "noted", VisibleToAuthor)

	got := c.RecentPlainText(3)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3: %q", len(lines), got)
	}
	want := []string{"Alice: three", "Alice: four", "AI: noted"}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line[%d] = %q, want %q", i, lines[i], w)
		}
	}

	// Fewer messages than the window returns all of them.
	if all := c.RecentPlainText(100); len(strings.Split(all, "\n")) != 5 {
		t.Fatalf("full window line count mismatch: %q", all)
	}
}

func TestExtractClaimsSplitsSentences(t *testing.T) {
	_, c, parties := newTestConversation(t, "Alice")
	claims := c.ExtractClaims(parties[0].ID, "I am happy. Are you sure? Yes!")
	if len(claims) != 3 {
		t.Fatalf("claim count = %d, want 3", len(claims))
	}
	want := []string{"I am happy", "Are you sure", "Yes"}
	for i, w := range want {
		if claims[i].Text != w {
			t.Fatalf("claim[%d] = %q, want %q", i, claims[i].Text, w)
		}
		if claims[i].Confidence != ClaimConfidenceDefault {
			t.Fatalf("claim[%d] confidence = %q, want %q", i, claims[i].Confidence, ClaimConfidenceDefault)
		}
		if len(claims[i].Tags) != 0 {
			t.Fatalf("claim[%d] tags = %v, want empty", i, claims[i].Tags)
		}
	}
	if len(c.Claims) != 3 {
		t.Fatalf("ledger claim count = %d, want 3", len(c.Claims))
	}
}

func TestExtractClaimsEdgeCases(t *testing.T) {
	_, c, parties := newTestConversation(t, "Alice")
	party := parties[0].ID

	if claims := c.ExtractClaims(party, ""); len(claims) != 0 {
		t.Fatalf("claims from empty text = %d, want 0", len(claims))
	}
	if claims := c.ExtractClaims(party, "   ...  "); len(claims) != 0 {
		t.Fatalf("claims from punctuation-only text = %d, want 0", len(claims))
	}
	claims := c.ExtractClaims(party, "no terminal punctuation at all")
	if len(claims) != 1 || claims[0].Text != "no terminal punctuation at all" {
		t.Fatalf("unterminated fragment claims = %+v", claims)
	}
}

func TestClaimsByFiltersAndBounds(t *testing.T) {
	_, c, parties := newTestConversation(t, "Alice", "Bob")
	alice, bob := parties[0].ID, parties[1].ID

	c.ExtractClaims(alice, "First point. Second point. Third point.")
	c.ExtractClaims(bob, "Bob disagrees.")
	c.ExtractClaims(alice, "Fourth point.")

	got := c.ClaimsBy(alice, 2)
	if len(got) != 2 {
		t.Fatalf("claim count = %d, want 2", len(got))
	}
	if got[0].Text != "Third point" || got[1].Text != "Fourth point" {
		t.Fatalf("unexpected claims: %+v", got)
	}
	for _, cl := range got {
		if cl.PartyID != alice {
			t.Fatalf("claim author = %q, want %q", cl.PartyID, alice)
		}
	}
}

func TestDetectDomainFirstMatchWins(t *testing.T) {
	cases := []struct {
		text string
		want Domain
	}{
		{"my spouse and I argue about the loan", DomainFamily},
		{"the contract says the deposit is refundable", DomainContract},
		{"my boss cut my salary", DomainWorkplace},
		{"the teacher failed my exam unfairly", DomainEducation},
		{"the hospital ignored the diagnosis", DomainHealth},
		{"we just cannot agree on anything", DomainGeneral},
		{"", DomainGeneral},
	}
	for _, tc := range cases {
		if got := DetectDomain(tc.text); got != tc.want {
			t.Fatalf("DetectDomain(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestDetectDomainCaseInsensitive(t *testing.T) {
	if got := DetectDomain("MY SPOUSE LEFT"); got != DomainFamily {
		t.Fatalf("DetectDomain uppercase = %q, want %q", got, DomainFamily)
	}
}
