package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/agentsignup/pkg/core"
	"github.com/gabrielmiguelok/agentsignup/pkg/logging"
	"github.com/gabrielmiguelok/agentsignup/pkg/protocol"
)

// WebSocket is a connected socket that encodes frames with a protocol.Codec.
// It implements core.Transport.
type WebSocket struct {
	conn   *websocket.Conn
	codec  protocol.Codec
	config Config
	logger logging.Logger

	sendCh    chan *protocol.Message
	recvCh    chan *protocol.Message
	closeCh   chan struct{}
	closeOnce sync.Once

	writerDone chan struct{}
	closeErr   error

	connected atomic.Bool
	dropped   atomic.Int64
}

var _ core.Transport = (*WebSocket)(nil)

// Upgrade validates the request origin and accepts the WebSocket.
func Upgrade(w http.ResponseWriter, r *http.Request, codec protocol.Codec, config Config, policy OriginPolicy, logger logging.Logger) (*WebSocket, error) {
	if !policy.Allowed(r.Header.Get("Origin"), r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return nil, ErrOriginNotAllowed
	}

	patterns, skip := policy.patterns()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     patterns,
		InsecureSkipVerify: skip,
	})
	if err != nil {
		return nil, fmt.Errorf("accept websocket: %w", err)
	}
	return start(conn, codec, config, logger), nil
}

// Dial opens a client connection to url. The signup server never dials; this
// exists for tools and tests that drive a session.
func Dial(ctx context.Context, url string, codec protocol.Codec, config Config) (*WebSocket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return start(conn, codec, config, nil), nil
}

func start(conn *websocket.Conn, codec protocol.Codec, config Config, logger logging.Logger) *WebSocket {
	config = config.withDefaults()
	if codec == nil {
		codec = protocol.NewJSONCodec()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	t := &WebSocket{
		conn:    conn,
		codec:   codec,
		config:  config,
		logger:  logger.With(logging.String("codec", codec.Name())),
		sendCh:  make(chan *protocol.Message, config.SendBufferSize),
		recvCh:  make(chan *protocol.Message, config.ReceiveBufferSize),
		closeCh: make(chan struct{}),

		writerDone: make(chan struct{}),
	}
	t.connected.Store(true)
	conn.SetReadLimit(config.MaxMessageSize)

	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()
	return t
}

// Codec returns the frame codec.
func (t *WebSocket) Codec() protocol.Codec {
	return t.codec
}

// IsConnected returns true until the connection closes.
func (t *WebSocket) IsConnected() bool {
	return t.connected.Load()
}

// Send queues a runtime message for the client.
func (t *WebSocket) Send(msg core.Message) error {
	return t.SendFrame(protocol.FromCore(msg))
}

// SendFrame queues a frame, waiting at most WriteTimeout for buffer space.
func (t *WebSocket) SendFrame(msg *protocol.Message) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	timer := time.NewTimer(t.config.WriteTimeout)
	defer timer.Stop()

	select {
	case t.sendCh <- msg:
		return nil
	case <-t.closeCh:
		return ErrConnectionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// Receive yields decoded client frames. It is closed when the connection ends.
func (t *WebSocket) Receive() <-chan *protocol.Message {
	return t.recvCh
}

// Done is closed when the connection ends.
func (t *WebSocket) Done() <-chan struct{} {
	return t.closeCh
}

// Dropped returns how many inbound frames were discarded as undecodable or
// because the receive buffer was full.
func (t *WebSocket) Dropped() int64 {
	return t.dropped.Load()
}

// Close closes the connection after flushing frames already queued by Send.
// It is idempotent.
func (t *WebSocket) Close() error {
	t.shutdown()
	<-t.writerDone
	return t.closeErr
}

func (t *WebSocket) shutdown() {
	t.closeOnce.Do(func() {
		t.connected.Store(false)
		close(t.closeCh)
	})
}

func (t *WebSocket) readLoop() {
	defer close(t.recvCh)
	defer t.shutdown()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), t.config.ReadTimeout)
		_, data, err := t.conn.Read(ctx)
		cancel()

		if err != nil {
			if !isClosed(err) {
				t.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		msg, err := t.codec.Decode(data)
		if err != nil {
			t.dropped.Add(1)
			t.logger.Warn("dropping undecodable frame", logging.Err(err), logging.Int("bytes", len(data)))
			continue
		}

		select {
		case t.recvCh <- msg:
		case <-t.closeCh:
			return
		default:
			t.dropped.Add(1)
			t.logger.Warn("receive buffer full, dropping frame", logging.String("event", msg.Event))
		}
	}
}

// writeLoop owns the connection's write side and its final close.
func (t *WebSocket) writeLoop() {
	defer close(t.writerDone)
	defer t.closeConn()

	kind := websocket.MessageText
	if t.codec.Binary() {
		kind = websocket.MessageBinary
	}

	for {
		select {
		case msg := <-t.sendCh:
			if !t.write(kind, msg) {
				t.shutdown()
				return
			}
		case <-t.closeCh:
			for {
				select {
				case msg := <-t.sendCh:
					if !t.write(kind, msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (t *WebSocket) write(kind websocket.MessageType, msg *protocol.Message) bool {
	data, err := t.codec.Encode(msg)
	if err != nil {
		t.logger.Error("encode frame", logging.Err(err), logging.String("event", msg.Event))
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
	defer cancel()

	if err := t.conn.Write(ctx, kind, data); err != nil {
		if !isClosed(err) {
			t.logger.Debug("websocket write failed", logging.Err(err))
		}
		return false
	}
	return true
}

func (t *WebSocket) closeConn() {
	err := t.conn.Close(websocket.StatusNormalClosure, "closing")
	if err != nil && !isClosed(err) {
		t.closeErr = err
	}
}

func (t *WebSocket) pingLoop() {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err := t.conn.Ping(ctx)
			cancel()
			if err != nil {
				t.shutdown()
				return
			}
		case <-t.closeCh:
			return
		}
	}
}

func isClosed(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
