// Package protocol defines the frames exchanged between the signup page and
// the server, and the codecs that put them on the wire.
package protocol

import (
	"fmt"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
)

// Client to server events.
const (
	EventJoin      = "join"
	EventLeave     = "leave"
	EventHeartbeat = "heartbeat"
	EventUser      = "event"
)

// Server to client events.
const (
	EventReply    = "reply"
	EventRender   = "render"
	EventRedirect = "redirect"
	EventError    = "error"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is a single frame.
type Message struct {
	// Ref correlates a reply with the client frame that caused it.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is "lv:<socket id>" once joined.
	Topic string `json:"topic" msgpack:"topic"`

	Event   string         `json:"event" msgpack:"event"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Validate reports whether msg is usable by the session loop.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if m.Event == "" {
		return fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}
	if m.Event == EventUser && m.UserEvent() == "" {
		return fmt.Errorf("%w: user event without name", ErrInvalidMessage)
	}
	return nil
}

// UserEvent returns the component event name carried by an "event" frame.
func (m *Message) UserEvent() string {
	return m.GetString("type")
}

// Value returns the "value" map of an "event" frame, or an empty map.
func (m *Message) Value() map[string]any {
	if v, ok := m.Payload["value"].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// GetString reads a string payload key.
func (m *Message) GetString(key string) string {
	if m.Payload == nil {
		return ""
	}
	s, _ := m.Payload[key].(string)
	return s
}

// ToCore converts to the runtime's message type.
func (m *Message) ToCore() core.Message {
	return core.Message{Ref: m.Ref, Topic: m.Topic, Event: m.Event, Payload: m.Payload}
}

// FromCore converts a runtime message into a wire frame.
func FromCore(msg core.Message) *Message {
	return &Message{Ref: msg.Ref, Topic: msg.Topic, Event: msg.Event, Payload: msg.Payload}
}

// Reply builds a reply to the frame identified by ref.
func Reply(ref, topic, status string, response map[string]any) *Message {
	if response == nil {
		response = map[string]any{}
	}
	return &Message{
		Ref:   ref,
		Topic: topic,
		Event: EventReply,
		Payload: map[string]any{
			"status":   status,
			"response": response,
		},
	}
}

// OkReply builds a successful reply.
func OkReply(ref, topic string, response map[string]any) *Message {
	return Reply(ref, topic, StatusOK, response)
}

// ErrorReply builds a failed reply with a reason.
func ErrorReply(ref, topic, reason string) *Message {
	return Reply(ref, topic, StatusError, map[string]any{"reason": reason})
}

// Render builds a full page render frame.
func Render(topic, html string, version uint64) *Message {
	return &Message{
		Topic:   topic,
		Event:   EventRender,
		Payload: map[string]any{"html": html, "v": version},
	}
}

// Redirect builds a navigation frame.
func Redirect(topic, to string) *Message {
	return &Message{
		Topic:   topic,
		Event:   EventRedirect,
		Payload: map[string]any{"to": to},
	}
}

// Heartbeat builds a keepalive reply.
func Heartbeat(ref string) *Message {
	return OkReply(ref, EventHeartbeat, nil)
}
