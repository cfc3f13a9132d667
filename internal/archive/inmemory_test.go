package archive

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStoreSaveAndRead(t *testing.T) {
	s := NewInMemoryStore(0, 5*time.Minute)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		err := s.SaveMessage(ctx, MessageRecord{
			ConversationID: "c1",
			AuthorID:       "p1",
			Role:           "user",
			Text:           text,
			VisibleTo:      "author_only",
		})
		if err != nil {
			t.Fatalf("SaveMessage() error = %v", err)
		}
	}

	got, err := s.Messages(ctx, "c1", 2)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("message count = %d, want 2", len(got))
	}
	if got[0].Text != "two" || got[1].Text != "three" {
		t.Fatalf("unexpected window: %+v", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("record missing generated fields: %+v", got[0])
	}
}

func TestInMemoryStoreSummaryTTL(t *testing.T) {
	s := NewInMemoryStore(0, time.Minute)
	ctx := context.Background()

	if err := s.PutSummary(ctx, "c1", "interim summary"); err != nil {
		t.Fatalf("PutSummary() error = %v", err)
	}
	text, ok, err := s.GetSummary(ctx, "c1")
	if err != nil || !ok || text != "interim summary" {
		t.Fatalf("GetSummary() = %q, %v, %v; want cached summary", text, ok, err)
	}

	// Advance the clock past the TTL.
	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	if _, ok, _ := s.GetSummary(ctx, "c1"); ok {
		t.Fatalf("summary should expire after TTL")
	}
}

func TestInMemoryStoreAppendInvalidatesSummary(t *testing.T) {
	s := NewInMemoryStore(0, time.Minute)
	ctx := context.Background()

	if err := s.PutSummary(ctx, "c1", "stale"); err != nil {
		t.Fatalf("PutSummary() error = %v", err)
	}
	if err := s.SaveMessage(ctx, MessageRecord{ConversationID: "c1", Text: "new message"}); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}
	if _, ok, _ := s.GetSummary(ctx, "c1"); ok {
		t.Fatalf("append should invalidate the cached summary")
	}
}

func TestInMemoryStoreRetentionExpiry(t *testing.T) {
	s := NewInMemoryStore(time.Hour, time.Minute)
	ctx := context.Background()

	if err := s.SaveMessage(ctx, MessageRecord{ConversationID: "c1", Text: "hello"}); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}
	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	got, err := s.Messages(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expired conversation returned %d messages, want 0", len(got))
	}
}
