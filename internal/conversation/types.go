package conversation

import (
	"sync/atomic"
	"time"
)

// Role identifies the author class of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// AIAuthorID is the reserved author identity for assistant messages.
const AIAuthorID = "ai"

// Visibility controls delivery routing, never storage.
type Visibility string

const (
	VisibleToAuthor Visibility = "author_only"
	VisibleToBoth   Visibility = "both"
)

// Domain is the coarse topic label used to parameterize the AI persona.
// It is set at most once per conversation; the first classification wins.
type Domain string

const (
	DomainUnset     Domain = ""
	DomainFamily    Domain = "family"
	DomainContract  Domain = "contract"
	DomainWorkplace Domain = "workplace"
	DomainEducation Domain = "education"
	DomainHealth    Domain = "health"
	DomainGeneral   Domain = "general"
)

// Mode is the conversational strategy derived from party count.
type Mode string

const (
	ModeGreeter  Mode = "greeter"
	ModeMediator Mode = "mediator"
)

// Participant liveness is read inside turns (under the conversation lock)
// and written on connect/disconnect (under the registry lock), so the
// liveness fields are atomics rather than being guarded by either mutex.
type Participant struct {
	ID             string    `json:"participant_id"`
	ConversationID string    `json:"conversation_id"`
	DisplayName    string    `json:"display_name"`
	JoinedAt       time.Time `json:"joined_at"`

	active   atomic.Bool
	lastSeen atomic.Int64
}

// Active reports whether the participant currently counts for other-party
// lookups.
func (p *Participant) Active() bool { return p.active.Load() }

// LastSeenAt is the time of the participant's most recent liveness update.
func (p *Participant) LastSeenAt() time.Time {
	return time.Unix(0, p.lastSeen.Load()).UTC()
}

func (p *Participant) markSeen() {
	p.active.Store(true)
	p.lastSeen.Store(time.Now().UnixNano())
}

func (p *Participant) markInactive() {
	p.active.Store(false)
	p.lastSeen.Store(time.Now().UnixNano())
}

type Message struct {
	ID             string     `json:"message_id"`
	ConversationID string     `json:"conversation_id"`
	AuthorID       string     `json:"author_id"`
	Role           Role       `json:"role"`
	Text           string     `json:"text"`
	VisibleTo      Visibility `json:"visible_to"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Claim is a sentence-level fragment extracted from a user message,
// used for cross-referencing between parties in mediator mode.
type Claim struct {
	ID             string    `json:"claim_id"`
	ConversationID string    `json:"conversation_id"`
	PartyID        string    `json:"party_id"`
	Text           string    `json:"text"`
	Tags           []string  `json:"tags"`
	Confidence     string    `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation is a bounded mediation session. Parties, messages and claims
// are owned exclusively by the conversation; messages and claims are
// append-only and chronological order is authoritative. All collection
// access goes through the per-conversation lock (Registry.WithLock);
// lastActivity is atomic because the janitor reads it under the registry
// lock instead.
type Conversation struct {
	ID         string         `json:"conversation_id"`
	Topic      string         `json:"topic,omitempty"`
	Domain     Domain         `json:"domain,omitempty"`
	Parties    []*Participant `json:"parties"`
	Messages   []Message      `json:"messages"`
	Claims     []Claim        `json:"claims"`
	NoticeSent bool           `json:"-"`
	CreatedAt  time.Time      `json:"created_at"`

	lastActivity atomic.Int64
}

// LastActivity is the time of the most recent turn or join.
func (c *Conversation) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load()).UTC()
}

func (c *Conversation) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// SelectMode derives the active dialogue mode from party count. It is a pure
// function re-evaluated on every inbound message, so a conversation switches
// greeter -> mediator the moment a second party joins and never switches back.
func SelectMode(c *Conversation) Mode {
	if len(c.Parties) >= 2 {
		return ModeMediator
	}
	return ModeGreeter
}

// Party returns the participant with the given id, or nil.
func (c *Conversation) Party(participantID string) *Participant {
	for _, p := range c.Parties {
		if p.ID == participantID {
			return p
		}
	}
	return nil
}

// OtherParty returns the most recently joined active participant other than
// currentID. Inactive members are skipped so a stale joiner never shadows the
// live counterpart.
func (c *Conversation) OtherParty(currentID string) *Participant {
	for i := len(c.Parties) - 1; i >= 0; i-- {
		p := c.Parties[i]
		if p.ID == currentID || !p.Active() {
			continue
		}
		return p
	}
	return nil
}

// DisplayNameOf resolves a message author to a printable speaker label.
func (c *Conversation) DisplayNameOf(authorID string) string {
	if authorID == AIAuthorID {
		return "AI"
	}
	if p := c.Party(authorID); p != nil {
		return p.DisplayName
	}
	return authorID
}
