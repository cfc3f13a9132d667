package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageJoinRoom(t *testing.T) {
	raw := []byte(`{"type":"join_room","conversation_id":"c1","participant_id":"p1"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	join, ok := msg.(JoinRoom)
	if !ok {
		t.Fatalf("message type = %T, want JoinRoom", msg)
	}
	if join.ConversationID != "c1" || join.ParticipantID != "p1" {
		t.Fatalf("unexpected join_room: %+v", join)
	}
}

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","text":"hello there"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	um, ok := msg.(UserMessage)
	if !ok {
		t.Fatalf("message type = %T, want UserMessage", msg)
	}
	if um.Text != "hello there" {
		t.Fatalf("Text = %q, want %q", um.Text, "hello there")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"type":"join_room","conversation_id":"","participant_id":"p1"}`,
		`{"type":"join_room","conversation_id":"c1"}`,
		`{"type":"user_message","text":""}`,
		`not json`,
	}
	for _, raw := range cases {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("expected validation error for %q", raw)
		}
	}
}
