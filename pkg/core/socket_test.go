package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// MockTransport implements Transport for testing.
type MockTransport struct {
	connected bool
	messages  []Message
	mu        sync.Mutex
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		messages:  make([]Message, 0),
	}
}

func (m *MockTransport) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrSocketClosed
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockTransport) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Message, len(m.messages))
	copy(result, m.messages)
	return result
}

func TestNewSocket(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())

	if socket.ID() != "test-id" {
		t.Errorf("expected ID 'test-id', got '%s'", socket.ID())
	}
	if !socket.IsConnected() {
		t.Error("expected socket to be connected")
	}
	if socket.Version() != 0 {
		t.Errorf("expected version 0, got %d", socket.Version())
	}
}

func TestSocket_Send(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("test-id", transport)

	msg := Message{
		Topic:   "test-topic",
		Event:   "test-event",
		Payload: map[string]any{"key": "value"},
	}
	if err := socket.Send(msg); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	messages := transport.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Event != "test-event" {
		t.Errorf("expected event 'test-event', got '%s'", messages[0].Event)
	}
}

func TestSocket_Send_Closed(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())
	socket.Close()

	if err := socket.Send(Message{Event: "test"}); err != ErrSocketClosed {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
	if socket.IsConnected() {
		t.Error("closed socket should not report connected")
	}
	select {
	case <-socket.Done():
	default:
		t.Error("Done should be closed")
	}
	if err := socket.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestSocket_Send_Concurrent(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("test-id", transport)

	const goroutines = 50
	const messagesPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				socket.Send(Message{
					Event:   "test",
					Payload: map[string]any{"id": id, "msg": j},
				})
			}
		}(i)
	}
	wg.Wait()

	if got := len(transport.Messages()); got != goroutines*messagesPerGoroutine {
		t.Errorf("expected %d messages, got %d", goroutines*messagesPerGoroutine, got)
	}
}

func TestSocket_SendRender_Versions(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("abc", transport)

	socket.SendRender("<p>one</p>")
	socket.SendRender("<p>two</p>")

	messages := transport.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].Event != "render" || messages[1].Topic != "lv:abc" {
		t.Errorf("unexpected message %+v", messages[1])
	}
	if messages[1].Payload["html"] != "<p>two</p>" {
		t.Errorf("unexpected html %v", messages[1].Payload["html"])
	}
	if messages[1].Payload["v"] != uint64(2) {
		t.Errorf("expected version 2, got %v", messages[1].Payload["v"])
	}
}

func TestSocket_PushRedirect(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("abc", transport)

	socket.PushRedirect("/dashboard?tour=1")

	msg := transport.Messages()[0]
	if msg.Event != "redirect" || msg.Payload["to"] != "/dashboard?tour=1" {
		t.Errorf("unexpected redirect %+v", msg)
	}
}

func TestSocket_SendInfo(t *testing.T) {
	socket := NewSocket("abc", NewMockTransport())

	if err := socket.SendInfo("done"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case msg := <-socket.Info():
		if msg != "done" {
			t.Errorf("unexpected info %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("info not delivered")
	}
}

func TestSocket_SendInfo_QueueFull(t *testing.T) {
	socket := NewSocket("abc", NewMockTransport())

	for i := 0; i < infoQueueSize; i++ {
		if err := socket.SendInfo(i); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := socket.SendInfo("overflow"); err != ErrInfoQueueFull {
		t.Errorf("expected ErrInfoQueueFull, got %v", err)
	}

	socket.Close()
	if err := socket.SendInfo("late"); err != ErrSocketClosed {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
}

func TestSocket_LastActivity(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())
	initial := socket.LastActivity()

	time.Sleep(5 * time.Millisecond)
	socket.UpdateActivity()

	if !socket.LastActivity().After(initial) {
		t.Error("expected LastActivity to advance")
	}
}

func TestSocket_Metadata(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())
	socket.SetMetadata("codec", "msgpack")

	if socket.GetMetadata("codec") != "msgpack" {
		t.Errorf("unexpected metadata %v", socket.GetMetadata("codec"))
	}
	if socket.GetMetadata("missing") != nil {
		t.Error("missing key should be nil")
	}
}

func TestSocketManager(t *testing.T) {
	sm := NewSocketManager()
	s1 := NewSocket("s1", NewMockTransport())
	s2 := NewSocket("s2", NewMockTransport())

	sm.Add(s1)
	sm.Add(s2)
	sm.Add(s1)

	if sm.Count() != 2 {
		t.Errorf("expected 2 sockets, got %d", sm.Count())
	}
	if got, ok := sm.Get("s1"); !ok || got != s1 {
		t.Error("expected to find s1")
	}

	sm.Remove("s1")
	sm.Remove("s1")
	if sm.Count() != 1 {
		t.Errorf("expected 1 socket, got %d", sm.Count())
	}
}

func TestSocketManager_Shutdown(t *testing.T) {
	sm := NewSocketManager()
	s := NewSocket("s1", NewMockTransport())
	sm.Add(s)

	// The session loop removes its socket once it sees Done.
	go func() {
		<-s.Done()
		sm.Remove(s.ID())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if !sm.IsShutdown() {
		t.Error("expected shutdown flag")
	}
	if err := sm.Add(NewSocket("late", NewMockTransport())); err != ErrShuttingDown {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
}

func TestSocketManager_Shutdown_Timeout(t *testing.T) {
	sm := NewSocketManager()
	sm.Add(NewSocket("stuck", NewMockTransport()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sm.Shutdown(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestSocketManager_CloseInactive(t *testing.T) {
	sm := NewSocketManager()
	idle := NewSocket("idle", NewMockTransport())
	idle.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())
	busy := NewSocket("busy", NewMockTransport())
	sm.Add(idle)
	sm.Add(busy)

	if n := sm.CloseInactive(time.Minute); n != 1 {
		t.Errorf("expected 1 closed, got %d", n)
	}
	if idle.IsConnected() || !busy.IsConnected() {
		t.Error("only the idle socket should be closed")
	}
}

func TestTimeoutConfig_Validate(t *testing.T) {
	if err := DefaultTimeoutConfig().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	c := DefaultTimeoutConfig()
	c.ComponentEvent = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for zero event timeout")
	}
}

func TestBuildContext(t *testing.T) {
	socket := NewSocket("abc", NewMockTransport())
	ctx := BuildContext(context.Background(), socket, Session{"k": "v"}, Params{"codec": "json"})

	if SocketFromContext(ctx) != socket {
		t.Error("socket missing from context")
	}
	if SessionFromContext(ctx).GetString("k") != "v" {
		t.Error("session missing from context")
	}
	if ParamsFromContext(ctx).GetDefault("codec", "x") != "json" {
		t.Error("params missing from context")
	}
}
