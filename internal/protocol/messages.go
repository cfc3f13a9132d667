package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeJoinRoom    MessageType = "join_room"
	TypeUserMessage MessageType = "user_message"
	TypeUserEcho    MessageType = "user_echo"
	TypeAIMessage   MessageType = "ai_message"
	TypeAIBroadcast MessageType = "ai_broadcast"
	TypeSystemEvent MessageType = "system_event"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// JoinRoom binds a websocket connection to a (conversation, participant)
// identity.
type JoinRoom struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	ParticipantID  string      `json:"participant_id"`
}

// UserMessage is one inbound chat message from a bound participant.
type UserMessage struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// UserEcho confirms storage of the sender's own message, to the sender only.
type UserEcho struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	MessageID      string      `json:"message_id"`
	AuthorID       string      `json:"author_id"`
	Text           string      `json:"text"`
	CreatedAt      time.Time   `json:"created_at"`
}

// AIMessage is a private assistant reply to one participant.
type AIMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	To             string      `json:"to"`
	VisibleTo      string      `json:"visible_to"`
	Text           string      `json:"text"`
}

// AIBroadcast is shared content delivered to every participant in the room.
type AIBroadcast struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Text           string      `json:"text"`
}

type SystemEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Code           string      `json:"code"`
	Detail         string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Code           string      `json:"code"`
	Source         string      `json:"source"`
	Retryable      bool        `json:"retryable"`
	Detail         string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeJoinRoom:
		var msg JoinRoom
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.ConversationID == "" || msg.ParticipantID == "" {
			return nil, errors.New("invalid join_room")
		}
		return msg, nil
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid user_message")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
