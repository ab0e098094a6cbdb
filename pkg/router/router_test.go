package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/protocol"
	"github.com/gabrielmiguelok/agentsignup/pkg/transport"
)

// counter is a small live component: "inc" adds one, "async" adds ten via
// HandleInfo, "boom" fails.
type counter struct {
	core.BaseComponent

	mu         sync.Mutex
	count      int
	mountErr   error
	terminated chan core.TerminateReason
}

func newCounter() *counter {
	return &counter{terminated: make(chan core.TerminateReason, 1)}
}

func (c *counter) Name() string { return "counter" }

func (c *counter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	if c.mountErr != nil {
		return c.mountErr
	}
	if start := params.Get("start"); start != "" {
		n, err := strconv.Atoi(start)
		if err != nil {
			return err
		}
		c.count = n
	}
	return nil
}

func (c *counter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, err := fmt.Fprintf(w, "<p>count=%d</p>", c.count)
		return err
	})
}

func (c *counter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "inc":
		c.mu.Lock()
		c.count++
		c.mu.Unlock()
	case "noop":
	case "async":
		socket := c.Socket()
		go func() { _ = socket.SendInfo("bump") }()
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

func (c *counter) HandleInfo(ctx context.Context, msg any) error {
	if msg == "bump" {
		c.mu.Lock()
		c.count += 10
		c.mu.Unlock()
	}
	return nil
}

func (c *counter) Terminate(ctx context.Context, reason core.TerminateReason) error {
	select {
	case c.terminated <- reason:
	default:
	}
	return nil
}

func TestRouter_InitialHTTPRender(t *testing.T) {
	r := New()
	r.Live("/", func() core.Component { return newCounter() }, WithTitle("Counter"))

	req := httptest.NewRequest(http.MethodGet, "/?start=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<title>Counter</title>",
		"<p>count=5</p>",
		`data-live-path="/"`,
		DefaultScriptPath,
		DefaultStylePath,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRouter_InitialRenderMountError(t *testing.T) {
	r := New()
	r.Live("/", func() core.Component {
		c := newCounter()
		c.mountErr = errors.New("boom")
		return c
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestRouter_CustomLayoutAndNonce(t *testing.T) {
	r := New()
	r.Use(SecureHeaders())
	r.Live("/", func() core.Component { return newCounter() }, WithLayout(func(w io.Writer, page Page) error {
		_, err := fmt.Fprintf(w, "nonce=%t body=%s", page.Nonce != "", page.Body)
		return err
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Body.String(); got != "nonce=true body=<p>count=0</p>" {
		t.Errorf("body = %q", got)
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected CSP header")
	}
}

func TestRouter_Handle(t *testing.T) {
	r := New()
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Body.String() != "pong" {
		t.Errorf("body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRouter_extractParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?step=2&codec=msgpack", nil)
	params := extractParams(req)

	if params.Get("step") != "2" {
		t.Errorf("step = %q", params.Get("step"))
	}
	if _, ok := params["codec"]; ok {
		t.Error("codec should not be passed to components")
	}
}

func TestRouter_isWebSocketRequest(t *testing.T) {
	tests := []struct {
		name       string
		upgrade    string
		connection string
		want       bool
	}{
		{"websocket", "websocket", "Upgrade", true},
		{"mixed case", "WebSocket", "keep-alive, Upgrade", true},
		{"plain", "", "", false},
		{"h2c", "h2c", "Upgrade", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Upgrade", tt.upgrade)
			req.Header.Set("Connection", tt.connection)
			if got := isWebSocketRequest(req); got != tt.want {
				t.Errorf("isWebSocketRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

// liveClient drives a session over a real WebSocket.
type liveClient struct {
	t    *testing.T
	conn *transport.WebSocket
	ref  int
}

func dialLive(t *testing.T, srv *httptest.Server, query string) *liveClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, err := transport.Dial(ctx, url, protocol.NewJSONCodec(), transport.DefaultConfig())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &liveClient{t: t, conn: conn}
}

func (c *liveClient) send(event string, payload map[string]any) string {
	c.t.Helper()
	c.ref++
	ref := strconv.Itoa(c.ref)
	if err := c.conn.SendFrame(&protocol.Message{Ref: ref, Event: event, Payload: payload}); err != nil {
		c.t.Fatalf("SendFrame() error = %v", err)
	}
	return ref
}

func (c *liveClient) event(name string) string {
	return c.send(protocol.EventUser, map[string]any{"type": name, "value": map[string]any{}})
}

func (c *liveClient) next() *protocol.Message {
	c.t.Helper()
	select {
	case msg, ok := <-c.conn.Receive():
		if !ok {
			c.t.Fatal("connection closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		c.t.Fatal("timed out waiting for frame")
	}
	return nil
}

func (c *liveClient) expectReply(ref, status string) *protocol.Message {
	c.t.Helper()
	msg := c.next()
	if msg.Event != protocol.EventReply || msg.Ref != ref {
		c.t.Fatalf("expected reply to %s, got %+v", ref, msg)
	}
	if msg.Payload["status"] != status {
		c.t.Fatalf("reply status = %v, want %s (%+v)", msg.Payload["status"], status, msg.Payload)
	}
	return msg
}

func (c *liveClient) expectRender(want string) {
	c.t.Helper()
	msg := c.next()
	if msg.Event != protocol.EventRender {
		c.t.Fatalf("expected render, got %+v", msg)
	}
	if html, _ := msg.Payload["html"].(string); html != want {
		c.t.Fatalf("render html = %q, want %q", html, want)
	}
}

func liveServer(t *testing.T, comp *counter, opts ...Option) (*Router, *httptest.Server) {
	t.Helper()
	r := New(opts...)
	r.Live("/", func() core.Component { return comp })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return r, srv
}

func TestLiveSession_EventLoop(t *testing.T) {
	comp := newCounter()
	_, srv := liveServer(t, comp)
	client := dialLive(t, srv, "?start=1")

	ref := client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=1</p>")

	ref = client.event("inc")
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=2</p>")

	// Unchanged output is not pushed again; the next frame is the info render.
	ref = client.event("async")
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=12</p>")

	ref = client.event("boom")
	client.expectReply(ref, protocol.StatusError)

	ref = client.send(protocol.EventHeartbeat, nil)
	client.expectReply(ref, protocol.StatusOK)

	ref = client.send(protocol.EventLeave, nil)
	client.expectReply(ref, protocol.StatusOK)

	select {
	case reason := <-comp.terminated:
		if reason != core.TerminateNormal {
			t.Errorf("terminate reason = %v, want normal", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("component was not terminated")
	}
}

func TestLiveSession_EventBeforeJoin(t *testing.T) {
	_, srv := liveServer(t, newCounter())
	client := dialLive(t, srv, "")

	ref := client.event("inc")
	msg := client.expectReply(ref, protocol.StatusError)
	resp, _ := msg.Payload["response"].(map[string]any)
	if resp["reason"] != ErrNotJoined.Error() {
		t.Errorf("reason = %v", resp["reason"])
	}

	ref = client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=0</p>")

	ref = client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusError)
}

func TestLiveSession_MountFailureCloses(t *testing.T) {
	comp := newCounter()
	comp.mountErr = errors.New("no catalog")
	_, srv := liveServer(t, comp)
	client := dialLive(t, srv, "")

	ref := client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusError)

	select {
	case <-client.conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection left open after failed mount")
	}
}

func TestLiveSession_UnknownCodecRejected(t *testing.T) {
	_, srv := liveServer(t, newCounter())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/?codec=xml", nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 response, got %v", resp)
	}
}

type sessionCounter struct {
	mu      sync.Mutex
	started int
	ended   []core.TerminateReason
}

func (s *sessionCounter) SessionStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
}

func (s *sessionCounter) SessionEnded(reason core.TerminateReason, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, reason)
}

func TestRouter_ShutdownTerminatesSessions(t *testing.T) {
	comp := newCounter()
	observer := &sessionCounter{}
	r, srv := liveServer(t, comp, WithSessionObserver(observer))
	client := dialLive(t, srv, "")

	ref := client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=0</p>")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case reason := <-comp.terminated:
		if reason != core.TerminateShutdown {
			t.Errorf("terminate reason = %v, want shutdown", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("component was not terminated")
	}

	if r.SocketManager().Count() != 0 {
		t.Errorf("sockets remaining = %d", r.SocketManager().Count())
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.started != 1 || len(observer.ended) != 1 {
		t.Errorf("observer saw %d starts, %v ends", observer.started, observer.ended)
	}
}

func TestLiveSession_IdleTimeout(t *testing.T) {
	timeouts := core.DefaultTimeoutConfig()
	timeouts.SessionIdle = 100 * time.Millisecond

	comp := newCounter()
	_, srv := liveServer(t, comp, WithTimeouts(timeouts))
	client := dialLive(t, srv, "")

	ref := client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=0</p>")

	select {
	case reason := <-comp.terminated:
		if reason != core.TerminateTimeout {
			t.Errorf("terminate reason = %v, want timeout", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("idle session was not terminated")
	}
}

func TestLiveSession_SessionsPerIP(t *testing.T) {
	r, srv := liveServer(t, newCounter(), WithSessionsPerIP(1))
	client := dialLive(t, srv, "")

	ref := client.send(protocol.EventJoin, nil)
	client.expectReply(ref, protocol.StatusOK)
	client.expectRender("<p>count=0</p>")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/", &websocket.DialOptions{
		HTTPHeader: http.Header{"X-Forwarded-For": []string{"203.0.113.50"}},
	})
	if err == nil {
		t.Fatal("expected second dial to fail despite a forwarded address")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 response, got %v", resp)
	}

	client.conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for r.perIP.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session slot was not released")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
