package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Common socket errors.
var (
	ErrSocketClosed   = errors.New("socket is closed")
	ErrSendFailed     = errors.New("failed to send message")
	ErrInfoQueueFull  = errors.New("socket info queue is full")
	ErrShuttingDown   = errors.New("socket manager is shutting down")
	ErrInvalidMessage = errors.New("invalid message format")
)

// infoQueueSize bounds undelivered info messages per socket.
const infoQueueSize = 16

// Transport is the interface for underlying connection transports.
type Transport interface {
	Send(msg Message) error
	Close() error
	IsConnected() bool
}

// Message is a frame exchanged with the client.
type Message struct {
	Ref     string         `json:"ref,omitempty" msgpack:"ref,omitempty"`
	Topic   string         `json:"topic" msgpack:"topic"`
	Event   string         `json:"event" msgpack:"event"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Socket is one client connection and the session bound to it.
type Socket struct {
	id          string
	connectedAt time.Time

	// lastActivity as Unix nanoseconds.
	lastActivity atomic.Int64

	// version numbers render frames so the client can drop stale ones.
	version atomic.Uint64

	transport Transport

	info chan any
	done chan struct{}

	metadata map[string]any
	closed   bool
	mu       sync.RWMutex
}

// NewSocket creates a new socket with the given ID and transport.
func NewSocket(id string, transport Transport) *Socket {
	now := time.Now()
	s := &Socket{
		id:          id,
		connectedAt: now,
		transport:   transport,
		info:        make(chan any, infoQueueSize),
		done:        make(chan struct{}),
		metadata:    make(map[string]any),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string {
	return s.id
}

// IsConnected returns true if the socket is connected.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.transport != nil && s.transport.IsConnected()
}

// ConnectedAt returns when the socket connected.
func (s *Socket) ConnectedAt() time.Time {
	return s.connectedAt
}

// LastActivity returns the time of last activity.
func (s *Socket) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// UpdateActivity updates the last activity timestamp.
func (s *Socket) UpdateActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Send sends a message to the client. It is safe for concurrent use.
func (s *Socket) Send(msg Message) error {
	s.mu.RLock()
	closed := s.closed
	transport := s.transport
	s.mu.RUnlock()

	if closed || transport == nil || !transport.IsConnected() {
		return ErrSocketClosed
	}

	if err := transport.Send(msg); err != nil {
		s.mu.RLock()
		closed = s.closed
		s.mu.RUnlock()
		if closed {
			return ErrSocketClosed
		}
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Push sends an event on the socket's topic.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(Message{
		Topic:   "lv:" + s.id,
		Event:   event,
		Payload: payload,
	})
}

// SendRender pushes a full render of the component.
func (s *Socket) SendRender(html string) error {
	return s.Push("render", map[string]any{
		"html": html,
		"v":    s.version.Add(1),
	})
}

// Version returns the number of renders sent so far.
func (s *Socket) Version() uint64 {
	return s.version.Load()
}

// PushRedirect tells the client to navigate to url.
func (s *Socket) PushRedirect(url string) error {
	return s.Push("redirect", map[string]any{"to": url})
}

// SendInfo queues msg for the component's HandleInfo. It never blocks: it
// fails when the socket is closed or the queue is full. Safe to call from any
// goroutine.
func (s *Socket) SendInfo(msg any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSocketClosed
	}
	select {
	case s.info <- msg:
		return nil
	default:
		return ErrInfoQueueFull
	}
}

// Info delivers queued info messages to the session loop.
func (s *Socket) Info() <-chan any {
	return s.info
}

// Done is closed when the socket closes.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// GetMetadata retrieves metadata by key.
func (s *Socket) GetMetadata(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata[key]
}

// SetMetadata stores metadata.
func (s *Socket) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Close closes the socket connection. It is idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// SocketManager tracks active sockets.
type SocketManager struct {
	sockets    map[string]*Socket
	active     sync.WaitGroup
	isShutdown bool
	mu         sync.RWMutex
}

// NewSocketManager creates a new socket manager.
func NewSocketManager() *SocketManager {
	return &SocketManager{
		sockets: make(map[string]*Socket),
	}
}

// Add registers a socket. It fails once Shutdown has started.
func (sm *SocketManager) Add(socket *Socket) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.isShutdown {
		return ErrShuttingDown
	}
	if _, exists := sm.sockets[socket.ID()]; !exists {
		sm.active.Add(1)
	}
	sm.sockets[socket.ID()] = socket
	return nil
}

// Remove unregisters a socket.
func (sm *SocketManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sockets[id]; ok {
		delete(sm.sockets, id)
		sm.active.Done()
	}
}

// Get retrieves a socket by ID.
func (sm *SocketManager) Get(id string) (*Socket, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sockets[id]
	return s, ok
}

// Count returns the number of active sockets.
func (sm *SocketManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sockets)
}

// All returns all sockets.
func (sm *SocketManager) All() []*Socket {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]*Socket, 0, len(sm.sockets))
	for _, s := range sm.sockets {
		result = append(result, s)
	}
	return result
}

// Shutdown refuses new sockets, closes the open ones and waits until their
// owners have removed them or ctx is done.
func (sm *SocketManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sm.isShutdown = true
	sockets := make([]*Socket, 0, len(sm.sockets))
	for _, s := range sm.sockets {
		sockets = append(sockets, s)
	}
	sm.mu.Unlock()

	for _, s := range sockets {
		s.Close()
	}

	done := make(chan struct{})
	go func() {
		sm.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown returns true if the manager is shutting down.
func (sm *SocketManager) IsShutdown() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isShutdown
}

// CloseInactive closes sockets idle for longer than maxInactive and returns
// how many were closed. Their session loops remove them.
func (sm *SocketManager) CloseInactive(maxInactive time.Duration) int {
	now := time.Now()
	closed := 0
	for _, s := range sm.All() {
		if now.Sub(s.LastActivity()) > maxInactive {
			s.Close()
			closed++
		}
	}
	return closed
}
