// Package core provides the component runtime: the Component contract, the
// per-connection Socket and the SocketManager that tracks live sessions.
package core

import (
	"context"
	"io"
)

// Component is a stateful server-side view. The router mounts one per
// connection and calls its methods from a single goroutine, so
// implementations need no locking of their own.
type Component interface {
	// Name returns the identifier for this component type.
	Name() string

	// Mount is called once when the client joins.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML. It is called after Mount and after
	// every handled event or info message.
	Render(ctx context.Context) Renderer

	// HandleEvent processes a user interaction.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes a message delivered with Socket.SendInfo,
	// typically the result of background work started by HandleEvent.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the session ends.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc is an adapter to allow ordinary functions to be used as Renderers.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params contains URL query parameters from the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter value or the default if not found.
func (p Params) GetDefault(key, defaultValue string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return defaultValue
}

// Session contains per-connection data provided by the HTTP layer.
type Session map[string]any

// Get returns a session value.
func (s Session) Get(key string) any {
	return s[key]
}

// GetString returns a session value as string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	// TerminateNormal indicates clean disconnection.
	TerminateNormal TerminateReason = iota
	// TerminateShutdown indicates server shutdown.
	TerminateShutdown
	// TerminateError indicates termination due to an error.
	TerminateError
	// TerminateTimeout indicates termination due to inactivity.
	TerminateTimeout
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// SocketAware is implemented by components that want their socket, usually
// by embedding BaseComponent.
type SocketAware interface {
	SetSocket(s *Socket)
}

// BaseComponent provides default implementations for Component methods.
// Embed it to avoid implementing unused methods.
type BaseComponent struct {
	socket *Socket
}

// SetSocket sets the socket for the component (called by the router).
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the component's socket connection.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

// Name returns an empty string (override in your component).
func (bc *BaseComponent) Name() string {
	return ""
}

// Mount does nothing by default.
func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

// HandleEvent does nothing by default.
func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

// HandleInfo does nothing by default.
func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

// Terminate does nothing by default.
func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}
