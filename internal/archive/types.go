package archive

import (
	"context"
	"time"
)

// MessageRecord is the persisted form of one ledger message.
type MessageRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	Role           string    `json:"role"`
	Text           string    `json:"text"`
	VisibleTo      string    `json:"visible_to"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store mirrors the in-memory ledger into durable storage and caches the
// shared interim summary. Appending a message refreshes the conversation's
// retention window and invalidates any cached summary for it.
type Store interface {
	SaveMessage(ctx context.Context, record MessageRecord) error
	Messages(ctx context.Context, conversationID string, limit int) ([]MessageRecord, error)
	PutSummary(ctx context.Context, conversationID, text string) error
	// GetSummary returns the cached summary and whether a fresh one exists.
	GetSummary(ctx context.Context, conversationID string) (string, bool, error)
	Close() error
}
