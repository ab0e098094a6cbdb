package router

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
	"github.com/gabrielmiguelok/agentsignup/pkg/pool"
	"github.com/gabrielmiguelok/agentsignup/pkg/protocol"
	"github.com/gabrielmiguelok/agentsignup/pkg/transport"
)

// Session errors reported to the client in error replies.
var (
	ErrNilRenderer    = errors.New("component returned nil renderer")
	ErrNotJoined      = errors.New("session not joined")
	ErrAlreadyJoined  = errors.New("session already joined")
	ErrUnknownMessage = errors.New("unknown message")
)

// SessionObserver is told when live sessions start and end.
type SessionObserver interface {
	SessionStarted()
	SessionEnded(reason core.TerminateReason, lifetime time.Duration)
}

type nopSessionObserver struct{}

func (nopSessionObserver) SessionStarted()                                 {}
func (nopSessionObserver) SessionEnded(core.TerminateReason, time.Duration) {}

// LiveSession binds one component instance to one WebSocket. Every frame
// and info message for the session is handled on the goroutine running
// run, one at a time.
type LiveSession struct {
	id        string
	topic     string
	component core.Component
	socket    *core.Socket
	conn      *transport.WebSocket
	params    core.Params
	data      core.Session
	logger    logging.Logger
	timeouts  core.TimeoutConfig
	startedAt time.Time

	mounted  bool
	rendered bool
	lastHash uint64
}

func newLiveSession(id string, comp core.Component, socket *core.Socket, conn *transport.WebSocket, params core.Params, data core.Session, timeouts core.TimeoutConfig, logger logging.Logger) *LiveSession {
	return &LiveSession{
		id:        id,
		topic:     "lv:" + id,
		component: comp,
		socket:    socket,
		conn:      conn,
		params:    params,
		data:      data,
		logger:    logger,
		timeouts:  timeouts,
		startedAt: time.Now(),
	}
}

// ID returns the socket ID the session is bound to.
func (s *LiveSession) ID() string {
	return s.id
}

// run processes the session until the client leaves, the connection drops,
// the session idles out or ctx is canceled.
func (s *LiveSession) run(ctx context.Context) core.TerminateReason {
	ctx = core.BuildContext(ctx, s.socket, s.data, s.params)
	ctx = logging.ContextWithLogger(ctx, s.logger)

	idle := time.NewTimer(s.timeouts.SessionIdle)
	defer idle.Stop()

	for {
		select {
		case msg, ok := <-s.conn.Receive():
			if !ok {
				if ctx.Err() != nil {
					return core.TerminateShutdown
				}
				return core.TerminateNormal
			}
			s.socket.UpdateActivity()
			if msg.Event != protocol.EventHeartbeat {
				idle.Reset(s.timeouts.SessionIdle)
			}
			if reason, stop := s.handleFrame(ctx, msg); stop {
				return reason
			}

		case info := <-s.socket.Info():
			s.handleInfo(ctx, info)

		case <-idle.C:
			s.logger.Info("session idle, closing", logging.Duration("idle", s.timeouts.SessionIdle))
			return core.TerminateTimeout

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

func (s *LiveSession) handleFrame(ctx context.Context, msg *protocol.Message) (core.TerminateReason, bool) {
	if err := msg.Validate(); err != nil {
		s.replyError(msg, err)
		return 0, false
	}

	switch msg.Event {
	case protocol.EventHeartbeat:
		s.reply(msg, nil)

	case protocol.EventJoin:
		if err := s.join(ctx); err != nil {
			s.logger.Warn("join failed", logging.Err(err))
			s.replyError(msg, err)
			if errors.Is(err, ErrAlreadyJoined) {
				return 0, false
			}
			return core.TerminateError, true
		}
		s.reply(msg, map[string]any{"id": s.id})
		s.render(ctx)

	case protocol.EventLeave:
		s.reply(msg, nil)
		return core.TerminateNormal, true

	case protocol.EventUser:
		if !s.mounted {
			s.replyError(msg, ErrNotJoined)
			return 0, false
		}
		if err := s.dispatch(ctx, msg.UserEvent(), msg.Value()); err != nil {
			s.logger.Debug("event rejected", logging.String("event", msg.UserEvent()), logging.Err(err))
			s.replyError(msg, err)
			return 0, false
		}
		s.reply(msg, nil)
		s.render(ctx)

	default:
		s.replyError(msg, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Event))
	}
	return 0, false
}

func (s *LiveSession) join(ctx context.Context) error {
	if s.mounted {
		return ErrAlreadyJoined
	}

	mctx, cancel := context.WithTimeout(ctx, s.timeouts.ComponentMount)
	defer cancel()

	if err := s.component.Mount(mctx, s.params, s.data); err != nil {
		return fmt.Errorf("mount %s: %w", s.component.Name(), err)
	}
	s.mounted = true
	return nil
}

func (s *LiveSession) dispatch(ctx context.Context, event string, payload map[string]any) error {
	ectx, cancel := context.WithTimeout(ctx, s.timeouts.ComponentEvent)
	defer cancel()
	return s.component.HandleEvent(ectx, event, payload)
}

func (s *LiveSession) handleInfo(ctx context.Context, info any) {
	if !s.mounted {
		return
	}

	ictx, cancel := context.WithTimeout(ctx, s.timeouts.ComponentEvent)
	err := s.component.HandleInfo(ictx, info)
	cancel()

	if err != nil {
		s.logger.Error("handle info failed", logging.String("info", fmt.Sprintf("%T", info)), logging.Err(err))
	}
	s.render(ctx)
}

// render pushes the component's HTML unless it is identical to the last push.
func (s *LiveSession) render(ctx context.Context) {
	renderer := s.component.Render(ctx)
	if renderer == nil {
		s.logger.Error("render failed", logging.Err(ErrNilRenderer))
		return
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := renderer.Render(ctx, buf); err != nil {
		s.logger.Error("render failed", logging.Err(err))
		return
	}

	h := fnv.New64a()
	_, _ = h.Write(buf.Bytes())
	sum := h.Sum64()
	if s.rendered && sum == s.lastHash {
		return
	}

	if err := s.socket.SendRender(buf.String()); err != nil {
		s.logger.Debug("render not delivered", logging.Err(err))
		return
	}
	s.rendered = true
	s.lastHash = sum
}

// terminate gives the component a bounded chance to clean up.
func (s *LiveSession) terminate(ctx context.Context, reason core.TerminateReason) {
	if !s.mounted {
		return
	}
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.ComponentEvent)
	defer cancel()
	if err := s.component.Terminate(tctx, reason); err != nil {
		s.logger.Warn("terminate failed", logging.Err(err))
	}
}

func (s *LiveSession) reply(msg *protocol.Message, response map[string]any) {
	_ = s.socket.Send(protocol.OkReply(msg.Ref, s.topic, response).ToCore())
}

func (s *LiveSession) replyError(msg *protocol.Message, err error) {
	_ = s.socket.Send(protocol.ErrorReply(msg.Ref, s.topic, err.Error()).ToCore())
}
