package testing

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
)

// MockTransport implements core.Transport and records every message.
type MockTransport struct {
	ID string

	sent      []core.Message
	closed    bool
	sendError error

	mu sync.Mutex
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		ID: "test-socket-" + uuid.NewString()[:8],
	}
}

// Send records a sent message.
func (mt *MockTransport) Send(msg core.Message) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.sendError != nil {
		return mt.sendError
	}
	if mt.closed {
		return core.ErrSocketClosed
	}
	mt.sent = append(mt.sent, msg)
	return nil
}

// Close marks the transport as closed.
func (mt *MockTransport) Close() error {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.closed = true
	return nil
}

// IsConnected returns false after Close.
func (mt *MockTransport) IsConnected() bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return !mt.closed
}

// SetError makes every following Send fail with err. Nil clears it.
func (mt *MockTransport) SetError(err error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.sendError = err
}

// Sent returns a copy of the recorded messages.
func (mt *MockTransport) Sent() []core.Message {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out := make([]core.Message, len(mt.sent))
	copy(out, mt.sent)
	return out
}

// SentCount returns the number of recorded messages.
func (mt *MockTransport) SentCount() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return len(mt.sent)
}

// Last returns the most recent message with the given event.
func (mt *MockTransport) Last(event string) (core.Message, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for i := len(mt.sent) - 1; i >= 0; i-- {
		if mt.sent[i].Event == event {
			return mt.sent[i], true
		}
	}
	return core.Message{}, false
}

// Reset forgets recorded messages and errors.
func (mt *MockTransport) Reset() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.sent = nil
	mt.sendError = nil
}
