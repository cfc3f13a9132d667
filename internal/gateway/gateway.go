package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tandemlab/parley/internal/archive"
	"github.com/tandemlab/parley/internal/conversation"
	"github.com/tandemlab/parley/internal/mediator"
	"github.com/tandemlab/parley/internal/observability"
	"github.com/tandemlab/parley/internal/protocol"
)

// Sink is one participant's outbound delivery endpoint. Send must not block;
// it reports whether the message was accepted (a gone client simply drops
// deliveries, the turn itself always completes).
type Sink interface {
	Send(msg any) bool
}

// Gateway binds transport connections to (conversation, participant)
// identity, routes inbound events through the ledger and orchestrator, and
// fans AI results out privately or to the whole room.
type Gateway struct {
	registry     *conversation.Registry
	orchestrator *mediator.Orchestrator
	store        archive.Store
	metrics      *observability.Metrics

	mu      sync.Mutex
	rooms   map[string]map[string]Sink
	greeted map[string]bool
}

func New(registry *conversation.Registry, orchestrator *mediator.Orchestrator, store archive.Store, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		registry:     registry,
		orchestrator: orchestrator,
		store:        store,
		metrics:      metrics,
		rooms:        make(map[string]map[string]Sink),
		greeted:      make(map[string]bool),
	}
}

// JoinRoom validates membership and registers the participant's sink in the
// conversation room. Unknown conversations and non-members get a typed
// rejection instead of a silent no-op. When the join brings the room to two
// or more parties the first time, a neutral notice is appended and broadcast
// to the whole room exactly once.
func (g *Gateway) JoinRoom(conversationID, participantID string, sink Sink) error {
	err := g.registry.WithLock(conversationID, func(conv *conversation.Conversation) error {
		if conv.Party(participantID) == nil {
			return conversation.ErrNotMember
		}

		g.mu.Lock()
		room, ok := g.rooms[conversationID]
		if !ok {
			room = make(map[string]Sink)
			g.rooms[conversationID] = room
		}
		room[participantID] = sink
		g.mu.Unlock()

		g.registry.MarkSeen(participantID)

		if len(conv.Parties) >= 2 && !conv.NoticeSent {
			conv.NoticeSent = true
			notice := conv.AppendMessage(conversation.AIAuthorID, conversation.RoleSystem,
				"Both parties are now connected. The mediator can see messages from each side.",
				conversation.VisibleToBoth)
			g.persist(notice)
			g.broadcast(conversationID, protocol.SystemEvent{
				Type:           protocol.TypeSystemEvent,
				ConversationID: conversationID,
				Code:           "parties_connected",
				Detail:         notice.Text,
			})
		}
		return nil
	})
	if err != nil {
		reason := "join_not_member"
		if errors.Is(err, conversation.ErrNotFound) {
			reason = "join_unknown_conversation"
		}
		g.metrics.IgnoredEvents.WithLabelValues(reason).Inc()
		log.Printf("join rejected: conversation=%s participant=%s: %v", conversationID, participantID, err)
	}
	return err
}

// LeaveRoom drops the participant's sink and excludes the participant from
// other-party lookups until it reconnects. The party list itself is never
// shrunk, so join order stays authoritative.
func (g *Gateway) LeaveRoom(conversationID, participantID string) {
	g.mu.Lock()
	if room, ok := g.rooms[conversationID]; ok {
		delete(room, participantID)
		if len(room) == 0 {
			delete(g.rooms, conversationID)
		}
	}
	g.mu.Unlock()
	g.registry.MarkInactive(participantID)
}

// TurnOutcome reports what one user message produced, for callers that
// respond over request/response transports instead of the room sinks.
type TurnOutcome struct {
	Echo    conversation.Message
	Private conversation.Message
	Shared  *conversation.Message
}

// UserMessage handles one inbound chat message as a single serialized turn:
// greet on first contact, append + echo the user message, classify the
// domain once, extract claims, select the mode, run the AI turn, then
// deliver the private reply and any shared summary. The echo is always
// delivered before the AI reply, and the AI reply before any broadcast.
func (g *Gateway) UserMessage(ctx context.Context, conversationID, participantID, text string) (TurnOutcome, error) {
	var outcome TurnOutcome
	err := g.registry.WithLock(conversationID, func(conv *conversation.Conversation) error {
		party := conv.Party(participantID)
		if party == nil {
			g.metrics.IgnoredEvents.WithLabelValues("message_not_member").Inc()
			return conversation.ErrNotMember
		}
		g.registry.MarkSeen(participantID)

		g.mu.Lock()
		firstContact := !g.greeted[participantID]
		g.greeted[participantID] = true
		g.mu.Unlock()
		if firstContact {
			g.deliver(conversationID, participantID, protocol.SystemEvent{
				Type:           protocol.TypeSystemEvent,
				ConversationID: conversationID,
				Code:           "greeting",
				Detail:         fmt.Sprintf("Hello %s, I am your mediator. Everything you write here stays private unless I share a neutral summary with both sides.", party.DisplayName),
			})
		}

		msg := conv.AppendMessage(participantID, conversation.RoleUser, text, conversation.VisibleToAuthor)
		outcome.Echo = msg
		g.persist(msg)
		g.deliver(conversationID, participantID, protocol.UserEcho{
			Type:           protocol.TypeUserEcho,
			ConversationID: conversationID,
			MessageID:      msg.ID,
			AuthorID:       msg.AuthorID,
			Text:           msg.Text,
			CreatedAt:      msg.CreatedAt,
		})

		// First classification wins; the domain is never re-evaluated.
		if conv.Domain == conversation.DomainUnset {
			conv.Domain = conversation.DetectDomain(conv.RecentPlainText(10))
		}

		conv.ExtractClaims(participantID, text)
		mode := conversation.SelectMode(conv)

		started := time.Now()
		result, err := g.orchestrator.RunTurn(ctx, conv, mode, participantID)
		if err != nil {
			// The user message and its echo stay appended; no AI message is
			// written and the failure goes to the requester only.
			g.metrics.UpstreamErrors.WithLabelValues("completion", "turn_failed").Inc()
			g.deliver(conversationID, participantID, protocol.ErrorEvent{
				Type:           protocol.TypeErrorEvent,
				ConversationID: conversationID,
				Code:           "ai_turn_failed",
				Source:         "completion",
				Retryable:      true,
				Detail:         err.Error(),
			})
			return fmt.Errorf("run turn: %w", err)
		}
		g.metrics.ObserveTurnLatency(time.Since(started))

		private := conv.AppendMessage(conversation.AIAuthorID, conversation.RoleAI, result.Private, conversation.VisibleToAuthor)
		outcome.Private = private
		g.persist(private)
		g.deliver(conversationID, participantID, protocol.AIMessage{
			Type:           protocol.TypeAIMessage,
			ConversationID: conversationID,
			To:             participantID,
			VisibleTo:      string(private.VisibleTo),
			Text:           private.Text,
		})

		if result.HasShared {
			shared := conv.AppendMessage(conversation.AIAuthorID, conversation.RoleAI, result.Shared, conversation.VisibleToBoth)
			outcome.Shared = &shared
			g.persist(shared)
			g.cacheSummary(conversationID, shared.Text)
			g.metrics.BroadcastsTriggered.Inc()
			g.broadcast(conversationID, protocol.AIBroadcast{
				Type:           protocol.TypeAIBroadcast,
				ConversationID: conversationID,
				Text:           shared.Text,
			})
		}
		return nil
	})
	return outcome, err
}

// deliver sends privately to a single participant's sink, if connected.
func (g *Gateway) deliver(conversationID, participantID string, msg any) {
	g.mu.Lock()
	sink := g.rooms[conversationID][participantID]
	g.mu.Unlock()
	if sink == nil {
		return
	}
	if !sink.Send(msg) {
		g.metrics.IgnoredEvents.WithLabelValues("deliver_drop").Inc()
	}
}

// broadcast sends to every connected sink in the room.
func (g *Gateway) broadcast(conversationID string, msg any) {
	g.mu.Lock()
	sinks := make([]Sink, 0, len(g.rooms[conversationID]))
	for _, s := range g.rooms[conversationID] {
		sinks = append(sinks, s)
	}
	g.mu.Unlock()
	for _, s := range sinks {
		if !s.Send(msg) {
			g.metrics.IgnoredEvents.WithLabelValues("broadcast_drop").Inc()
		}
	}
}

func (g *Gateway) persist(m conversation.Message) {
	if g.store == nil {
		return
	}
	err := g.store.SaveMessage(context.Background(), archive.MessageRecord{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AuthorID:       m.AuthorID,
		Role:           string(m.Role),
		Text:           m.Text,
		VisibleTo:      string(m.VisibleTo),
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		// The in-memory ledger stays authoritative; archive writes are
		// write-behind and must not fail the turn.
		g.metrics.UpstreamErrors.WithLabelValues("archive", "save_failed").Inc()
		log.Printf("archive save failed: conversation=%s message=%s: %v", m.ConversationID, m.ID, err)
	}
}

func (g *Gateway) cacheSummary(conversationID, text string) {
	if g.store == nil {
		return
	}
	if err := g.store.PutSummary(context.Background(), conversationID, text); err != nil {
		g.metrics.UpstreamErrors.WithLabelValues("archive", "summary_failed").Inc()
		log.Printf("summary cache write failed: conversation=%s: %v", conversationID, err)
	}
}
