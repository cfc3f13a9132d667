package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process archive for local/dev use. Retention
// is enforced lazily on read; there is no background sweeper.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[string][]MessageRecord
	expiresAt map[string]time.Time
	summaries map[string]cachedSummary

	retention  time.Duration
	summaryTTL time.Duration
	now        func() time.Time
}

type cachedSummary struct {
	text      string
	expiresAt time.Time
}

func NewInMemoryStore(retention, summaryTTL time.Duration) *InMemoryStore {
	if summaryTTL <= 0 {
		summaryTTL = 5 * time.Minute
	}
	return &InMemoryStore{
		records:    make(map[string][]MessageRecord),
		expiresAt:  make(map[string]time.Time),
		summaries:  make(map[string]cachedSummary),
		retention:  retention,
		summaryTTL: summaryTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) SaveMessage(_ context.Context, record MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	s.records[record.ConversationID] = append(s.records[record.ConversationID], record)
	if s.retention > 0 {
		s.expiresAt[record.ConversationID] = s.now().Add(s.retention)
	}
	// Every append stales the shared summary.
	delete(s.summaries, record.ConversationID)
	return nil
}

func (s *InMemoryStore) Messages(_ context.Context, conversationID string, limit int) ([]MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if exp, ok := s.expiresAt[conversationID]; ok && s.now().After(exp) {
		return nil, nil
	}
	arr := s.records[conversationID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]MessageRecord, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}

func (s *InMemoryStore) PutSummary(_ context.Context, conversationID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[conversationID] = cachedSummary{
		text:      text,
		expiresAt: s.now().Add(s.summaryTTL),
	}
	return nil
}

func (s *InMemoryStore) GetSummary(_ context.Context, conversationID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.summaries[conversationID]
	if !ok || s.now().After(cached.expiresAt) {
		return "", false, nil
	}
	return cached.text, true, nil
}

func (s *InMemoryStore) Close() error { return nil }
