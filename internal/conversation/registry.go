package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("conversation not found")
	ErrNotMember = errors.New("participant is not a member of the conversation")
)

// DefaultDisplayName is used when a joiner gives no name.
const DefaultDisplayName = "Anon"

// Registry owns every conversation and participant in the process. All
// mutation goes through the registry so handlers never touch shared maps
// directly. Turns on the same conversation are serialized with WithLock;
// distinct conversations proceed independently.
type Registry struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	participants  map[string]*Participant
	locks         map[string]*sync.Mutex
	ttl           time.Duration
	onExpire      func(*Conversation)
}

// NewRegistry creates an empty registry. ttl = 0 keeps conversations for the
// process lifetime; a positive ttl lets the janitor expire idle conversations.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		conversations: make(map[string]*Conversation),
		participants:  make(map[string]*Participant),
		locks:         make(map[string]*sync.Mutex),
		ttl:           ttl,
	}
}

func (r *Registry) SetExpireHook(hook func(*Conversation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

// Create allocates a new conversation with empty collections and unset domain.
func (r *Registry) Create(topic string) *Conversation {
	c := &Conversation{
		ID:        uuid.NewString(),
		Topic:     strings.TrimSpace(topic),
		CreatedAt: time.Now().UTC(),
	}
	c.touch()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[c.ID] = c
	r.locks[c.ID] = &sync.Mutex{}
	return c
}

// Join allocates a participant and appends it to the conversation's party
// list. Join order is preserved; a participant id already present is not
// appended twice.
func (r *Registry) Join(conversationID, displayName string) (*Participant, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = DefaultDisplayName
	}

	r.mu.Lock()
	c, ok := r.conversations[conversationID]
	lock := r.locks[conversationID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	p := &Participant{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		DisplayName:    name,
		JoinedAt:       time.Now().UTC(),
	}
	p.markSeen()
	r.participants[p.ID] = p
	r.mu.Unlock()

	// The party list is read by in-flight turns, so the append happens
	// under the conversation lock, not the registry lock.
	lock.Lock()
	defer lock.Unlock()
	if c.Party(p.ID) == nil {
		c.Parties = append(c.Parties, p)
	}
	c.touch()
	return p, nil
}

// Get returns the conversation for id.
//
// The returned pointer is shared; callers that read or mutate parties,
// messages or claims must hold the conversation lock via WithLock.
func (r *Registry) Get(id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Participant returns the process-wide participant record for id.
func (r *Registry) Participant(id string) (*Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// WithLock runs fn while holding the per-conversation mutex, serializing
// concurrent turns on one conversation so ledger appends, claim extraction
// and the one-shot domain classification never interleave.
func (r *Registry) WithLock(conversationID string, fn func(*Conversation) error) error {
	r.mu.RLock()
	c, ok := r.conversations[conversationID]
	lock := r.locks[conversationID]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()
	c.touch()
	return fn(c)
}

// MarkSeen records participant liveness for other-party lookups.
func (r *Registry) MarkSeen(participantID string) {
	r.mu.RLock()
	p := r.participants[participantID]
	r.mu.RUnlock()
	if p != nil {
		p.markSeen()
	}
}

// MarkInactive excludes a participant from other-party lookups without
// removing it from the party list (join order stays intact).
func (r *Registry) MarkInactive(participantID string) {
	r.mu.RLock()
	p := r.participants[participantID]
	r.mu.RUnlock()
	if p != nil {
		p.markInactive()
	}
}

func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}

// StartJanitor expires idle conversations when a ttl is configured.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.expireIdle()
			}
		}
	}()
}

func (r *Registry) expireIdle() {
	now := time.Now().UTC()
	var expired []*Conversation

	r.mu.Lock()
	for id, c := range r.conversations {
		if now.Sub(c.LastActivity()) < r.ttl {
			continue
		}
		delete(r.conversations, id)
		delete(r.locks, id)
		for _, p := range c.Parties {
			delete(r.participants, p.ID)
		}
		expired = append(expired, c)
	}
	hook := r.onExpire
	r.mu.Unlock()

	if hook != nil {
		for _, c := range expired {
			hook(c)
		}
	}
}
