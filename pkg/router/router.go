// Package router serves live components over HTTP: the first request gets a
// full HTML page and the WebSocket upgrade on the same path runs the
// component's session loop.
package router

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/limits"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
	"github.com/gabrielmiguelok/agentsignup/pkg/pool"
	"github.com/gabrielmiguelok/agentsignup/pkg/protocol"
	"github.com/gabrielmiguelok/agentsignup/pkg/transport"
)

// Common router errors.
var (
	ErrTooManySessions = errors.New("too many live sessions")
)

// Default asset paths referenced by DefaultLayout.
const (
	DefaultScriptPath = "/_live/signup.js"
	DefaultStylePath  = "/_live/signup.css"
)

// Router handles HTTP routing and live sessions.
type Router struct {
	mux      *chi.Mux
	sockets  *core.SocketManager
	logger   logging.Logger
	timeouts core.TimeoutConfig
	wsConfig transport.Config
	origins  transport.OriginPolicy
	observer SessionObserver
	perIP    *limits.SessionLimiter
	resolver *limits.IPResolver

	maxSessions int
	scriptPath  string
	stylePath   string
	layout      Layout

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for requests and sessions.
func WithLogger(logger logging.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithTimeouts sets component and session timeouts.
func WithTimeouts(timeouts core.TimeoutConfig) Option {
	return func(r *Router) { r.timeouts = timeouts }
}

// WithTransportConfig sets WebSocket tuning.
func WithTransportConfig(config transport.Config) Option {
	return func(r *Router) { r.wsConfig = config }
}

// WithOriginPolicy sets which origins may open live sessions.
func WithOriginPolicy(policy transport.OriginPolicy) Option {
	return func(r *Router) { r.origins = policy }
}

// WithSessionObserver reports session starts and ends.
func WithSessionObserver(observer SessionObserver) Option {
	return func(r *Router) { r.observer = observer }
}

// WithMaxSessions caps concurrent live sessions. Zero means no limit.
func WithMaxSessions(n int) Option {
	return func(r *Router) { r.maxSessions = n }
}

// WithSessionsPerIP caps concurrent live sessions per client address.
// Zero means no limit.
func WithSessionsPerIP(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.perIP = limits.NewSessionLimiter(n)
		}
	}
}

// WithIPResolver sets how client addresses are derived for the per-client
// session cap. By default forwarding headers are ignored.
func WithIPResolver(resolver *limits.IPResolver) Option {
	return func(r *Router) { r.resolver = resolver }
}

// WithAssets sets the client script and stylesheet paths used by layouts.
func WithAssets(scriptPath, stylePath string) Option {
	return func(r *Router) {
		r.scriptPath = scriptPath
		r.stylePath = stylePath
	}
}

// LiveRoute defines a route that renders a live component.
type LiveRoute struct {
	Path      string
	Title     string
	Component func() core.Component
	Layout    Layout
}

// RouteOption configures a LiveRoute.
type RouteOption func(*LiveRoute)

// WithTitle sets the document title.
func WithTitle(title string) RouteOption {
	return func(lr *LiveRoute) { lr.Title = title }
}

// WithLayout overrides the router's layout for one route.
func WithLayout(layout Layout) RouteOption {
	return func(lr *LiveRoute) { lr.Layout = layout }
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:        chi.NewRouter(),
		sockets:    core.NewSocketManager(),
		logger:     logging.NopLogger{},
		timeouts:   core.DefaultTimeoutConfig(),
		wsConfig:   transport.DefaultConfig(),
		observer:   nopSessionObserver{},
		scriptPath: DefaultScriptPath,
		stylePath:  DefaultStylePath,
		layout:     DefaultLayout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wsConfig.WriteTimeout = r.timeouts.WebSocketWrite
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Use appends middleware to every route.
func (r *Router) Use(mw ...Middleware) {
	r.mux.Use(mw...)
}

// Handle registers a plain HTTP handler.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// Get registers a GET handler.
func (r *Router) Get(pattern string, handler http.HandlerFunc) {
	r.mux.Get(pattern, handler)
}

// Mount attaches a sub-handler under pattern.
func (r *Router) Mount(pattern string, handler http.Handler) {
	r.mux.Mount(pattern, handler)
}

// SocketManager returns the live socket registry.
func (r *Router) SocketManager() *core.SocketManager {
	return r.sockets
}

// Live registers a live component at path.
func (r *Router) Live(path string, component func() core.Component, opts ...RouteOption) {
	route := &LiveRoute{
		Path:      path,
		Component: component,
	}
	for _, opt := range opts {
		opt(route)
	}
	if route.Layout == nil {
		route.Layout = r.layout
	}
	r.mux.Get(path, r.handleLive(route))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Shutdown stops accepting sessions, terminates the open ones and waits for
// them to finish or ctx to expire.
func (r *Router) Shutdown(ctx context.Context) error {
	r.cancel()
	return r.sockets.Shutdown(ctx)
}

func (r *Router) handleLive(route *LiveRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if isWebSocketRequest(req) {
			r.serveSocket(w, req, route)
			return
		}
		r.renderPage(w, req, route)
	}
}

// renderPage mounts a throwaway instance and returns the full document.
func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	component := route.Component()
	params := extractParams(req)
	session := extractSession(req, r.resolver.ClientIP(req))

	ctx, cancel := context.WithTimeout(req.Context(), r.timeouts.ComponentMount)
	defer cancel()
	ctx = logging.ContextWithLogger(core.BuildContext(ctx, nil, session, params), r.logger)

	if err := component.Mount(ctx, params, session); err != nil {
		r.logger.Error("mount failed", logging.String("component", component.Name()), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	renderer := component.Render(ctx)
	if renderer == nil {
		r.logger.Error("render failed", logging.Err(ErrNilRenderer))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body := pool.GetBuffer()
	defer pool.PutBuffer(body)
	if err := renderer.Render(ctx, body); err != nil {
		r.logger.Error("render failed", logging.String("component", component.Name()), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page := Page{
		Title:      route.Title,
		Body:       template.HTML(body.String()),
		LivePath:   req.URL.Path,
		ScriptPath: r.scriptPath,
		StylePath:  r.stylePath,
		Nonce:      CSPNonce(req.Context()),
	}

	doc := pool.GetBuffer()
	defer pool.PutBuffer(doc)
	if err := route.Layout(doc, page); err != nil {
		r.logger.Error("layout failed", logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(doc.Bytes())
}

// serveSocket upgrades the request and starts the session loop.
func (r *Router) serveSocket(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	if r.sockets.IsShutdown() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.maxSessions > 0 && r.sockets.Count() >= r.maxSessions {
		r.logger.Warn("rejecting live session", logging.Err(ErrTooManySessions))
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	codec, err := protocol.CodecFor(req.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ip := r.resolver.ClientIP(req)
	if r.perIP != nil {
		if err := r.perIP.Acquire(ip); err != nil {
			r.logger.Warn("rejecting live session", logging.Err(err), logging.String("ip", ip))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
	}
	release := func() {
		if r.perIP != nil {
			r.perIP.Release(ip)
		}
	}

	id := uuid.NewString()
	logger := r.logger.With(logging.String("socket", id))

	conn, err := transport.Upgrade(w, req, codec, r.wsConfig, r.origins, logger)
	if err != nil {
		release()
		logger.Warn("websocket upgrade failed", logging.Err(err), logging.String("origin", req.Header.Get("Origin")))
		return
	}

	socket := core.NewSocket(id, conn)
	if err := r.sockets.Add(socket); err != nil {
		release()
		conn.Close()
		return
	}

	component := route.Component()
	if aware, ok := component.(core.SocketAware); ok {
		aware.SetSocket(socket)
	}

	session := newLiveSession(id, component, socket, conn, extractParams(req), extractSession(req, ip), r.timeouts, logger)
	go func() {
		defer release()
		r.runSession(session)
	}()
}

func (r *Router) runSession(s *LiveSession) {
	r.observer.SessionStarted()
	s.logger.Info("session started", logging.String("component", s.component.Name()), logging.String("codec", s.conn.Codec().Name()))

	reason := s.run(r.ctx)

	s.terminate(r.ctx, reason)
	s.socket.Close()
	r.sockets.Remove(s.id)

	lifetime := time.Since(s.startedAt)
	r.observer.SessionEnded(reason, lifetime)
	s.logger.Info("session ended", logging.String("reason", reason.String()), logging.Duration("lifetime", lifetime))
}

func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if key == "codec" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key != "*" && i < len(rctx.URLParams.Values) {
				params[key] = rctx.URLParams.Values[i]
			}
		}
	}
	return params
}

func extractSession(req *http.Request, ip string) core.Session {
	return core.Session{
		"remote_addr": ip,
		"user_agent":  req.UserAgent(),
	}
}

func isWebSocketRequest(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(req.Header.Get("Connection")), "upgrade")
}
