package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tandemlab/parley/internal/conversation"
	"github.com/tandemlab/parley/internal/protocol"
)

// chanSink adapts the connection's outbound queue to the gateway's Sink.
// Send never blocks; a saturated queue drops the message so one slow client
// cannot stall a turn.
type chanSink struct {
	ch chan<- any
}

func (s chanSink) Send(msg any) bool {
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ConversationEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.ConversationEvents.WithLabelValues("ws_disconnected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 64)
	outbound := make(chan any, 64)
	sink := chanSink{ch: outbound}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.runConnection(ctx, inbound, sink)
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.metrics.IgnoredEvents.WithLabelValues("unparseable").Inc()
			sink.Send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-workerDone
	<-writerDone
}

// runConnection consumes inbound events sequentially, binding the connection
// to a (conversation, participant) identity on join_room and running each
// user_message as one turn. Run-to-completion per event keeps ledger
// mutations for this sender ordered.
func (s *Server) runConnection(ctx context.Context, inbound <-chan any, sink chanSink) {
	var conversationID, participantID string
	bound := false

	defer func() {
		if bound {
			s.gateway.LeaveRoom(conversationID, participantID)
		}
	}()

	for msg := range inbound {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch m := msg.(type) {
		case protocol.JoinRoom:
			if err := s.gateway.JoinRoom(m.ConversationID, m.ParticipantID, sink); err != nil {
				sink.Send(protocol.ErrorEvent{
					Type:           protocol.TypeErrorEvent,
					ConversationID: m.ConversationID,
					Code:           "join_rejected",
					Source:         "gateway",
					Retryable:      false,
					Detail:         err.Error(),
				})
				continue
			}
			conversationID, participantID = m.ConversationID, m.ParticipantID
			bound = true
			sink.Send(protocol.SystemEvent{
				Type:           protocol.TypeSystemEvent,
				ConversationID: conversationID,
				Code:           "joined",
			})
		case protocol.UserMessage:
			if !bound {
				s.metrics.IgnoredEvents.WithLabelValues("message_before_join").Inc()
				sink.Send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					Code:      "not_joined",
					Source:    "gateway",
					Retryable: false,
					Detail:    "join_room must precede user_message",
				})
				continue
			}
			// Upstream turn failures are already delivered to the sender
			// as error events by the gateway. Membership failures never
			// reach the gateway's delivery path (e.g. the conversation
			// expired after the bind), so relay those here.
			_, err := s.gateway.UserMessage(ctx, conversationID, participantID, m.Text)
			if errors.Is(err, conversation.ErrNotFound) || errors.Is(err, conversation.ErrNotMember) {
				_, code := turnErrorStatus(err)
				sink.Send(protocol.ErrorEvent{
					Type:           protocol.TypeErrorEvent,
					ConversationID: conversationID,
					Code:           code,
					Source:         "gateway",
					Retryable:      false,
					Detail:         err.Error(),
				})
			}
		}
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.JoinRoom:
		return m.Type, true
	case protocol.UserMessage:
		return m.Type, true
	case protocol.UserEcho:
		return m.Type, true
	case protocol.AIMessage:
		return m.Type, true
	case protocol.AIBroadcast:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
