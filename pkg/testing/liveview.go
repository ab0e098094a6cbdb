// Package testing drives live components in unit tests without a browser or
// a WebSocket: events and info messages go straight to the component and
// every step re-renders.
package testing

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
)

// LiveViewTest is a mounted component under test.
type LiveViewTest struct {
	t         testing.TB
	component core.Component
	transport *MockTransport
	socket    *core.Socket
	params    core.Params
	session   core.Session
	rendered  string
	events    []string
}

// MountOption configures the test mount.
type MountOption func(*LiveViewTest)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) { lvt.params = params }
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) { lvt.session = session }
}

// Mount wires a socket into comp, mounts it and renders once.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lvt := &LiveViewTest{
		t:         t,
		component: comp,
		transport: NewMockTransport(),
		params:    core.Params{},
		session:   core.Session{},
	}
	for _, opt := range opts {
		opt(lvt)
	}

	lvt.socket = core.NewSocket(lvt.transport.ID, lvt.transport)
	if aware, ok := comp.(core.SocketAware); ok {
		aware.SetSocket(lvt.socket)
	}

	if err := comp.Mount(lvt.ctx(), lvt.params, lvt.session); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	lvt.render()

	t.Cleanup(func() {
		_ = comp.Terminate(context.Background(), core.TerminateNormal)
		_ = lvt.socket.Close()
	})
	return lvt
}

func (lvt *LiveViewTest) ctx() context.Context {
	return core.BuildContext(context.Background(), lvt.socket, lvt.session, lvt.params)
}

// Event sends a user event and re-renders. A handler error fails the test.
func (lvt *LiveViewTest) Event(name string, value map[string]any) *LiveViewTest {
	lvt.t.Helper()
	if err := lvt.EventErr(name, value); err != nil {
		lvt.t.Errorf("HandleEvent(%q) failed: %v", name, err)
	}
	return lvt
}

// EventErr sends a user event and returns the handler's error. The component
// is re-rendered only on success.
func (lvt *LiveViewTest) EventErr(name string, value map[string]any) error {
	lvt.t.Helper()
	if value == nil {
		value = map[string]any{}
	}
	lvt.events = append(lvt.events, name)

	if err := lvt.component.HandleEvent(lvt.ctx(), name, value); err != nil {
		return err
	}
	lvt.render()
	return nil
}

// SendInfo delivers msg to HandleInfo and re-renders.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()
	if err := lvt.component.HandleInfo(lvt.ctx(), msg); err != nil {
		lvt.t.Errorf("HandleInfo failed: %v", err)
		return lvt
	}
	lvt.render()
	return lvt
}

// AwaitInfo waits for the component to queue an info message on its socket,
// as background work does, then handles it like the session loop would.
func (lvt *LiveViewTest) AwaitInfo(timeout time.Duration) *LiveViewTest {
	lvt.t.Helper()
	select {
	case msg := <-lvt.socket.Info():
		return lvt.SendInfo(msg)
	case <-time.After(timeout):
		lvt.t.Fatalf("no info message within %v", timeout)
	}
	return lvt
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()
	renderer := lvt.component.Render(lvt.ctx())
	if renderer == nil {
		lvt.t.Fatal("Render returned nil")
	}

	var buf bytes.Buffer
	if err := renderer.Render(lvt.ctx(), &buf); err != nil {
		lvt.t.Fatalf("Render failed: %v", err)
	}
	lvt.rendered = buf.String()
}

// Rendered returns the current rendered HTML.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// HTML returns assertions over the current render.
func (lvt *LiveViewTest) HTML() *HTMLAssert {
	lvt.t.Helper()
	return NewHTMLAssert(lvt.t, lvt.rendered)
}

// AssertText verifies the rendered output contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()
	if !strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text not found: %q\nRendered HTML:\n%s", text, lvt.rendered)
	}
	return lvt
}

// AssertNoText verifies the rendered output does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()
	if strings.Contains(lvt.rendered, text) {
		lvt.t.Errorf("Text should not exist: %q", text)
	}
	return lvt
}

// Redirect returns the target of the last redirect pushed to the client.
func (lvt *LiveViewTest) Redirect() (string, bool) {
	msg, ok := lvt.transport.Last("redirect")
	if !ok {
		return "", false
	}
	to, _ := msg.Payload["to"].(string)
	return to, true
}

// Transport returns the mock transport behind the socket.
func (lvt *LiveViewTest) Transport() *MockTransport {
	return lvt.transport
}

// Socket returns the socket given to the component.
func (lvt *LiveViewTest) Socket() *core.Socket {
	return lvt.socket
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}

// Events returns the names of all events sent so far.
func (lvt *LiveViewTest) Events() []string {
	return lvt.events
}
