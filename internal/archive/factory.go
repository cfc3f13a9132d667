package archive

import (
	"context"
	"strings"
	"time"
)

// NewStore creates a postgres-backed archive when configured, otherwise
// in-memory.
func NewStore(ctx context.Context, databaseURL string, retention, summaryTTL time.Duration) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(retention, summaryTTL), nil
	}
	return NewPostgresStore(ctx, databaseURL, retention, summaryTTL)
}
