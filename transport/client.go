// ABOUTME: socket.io client over a gorilla websocket that feeds a session tracker and reconnects on loss.
// ABOUTME: Handles the Engine.IO handshake, heartbeats and event dispatch; commands are written as event frames.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/2389-research/simwatch/session"
)

// ErrHandshake is returned when the server does not complete the Engine.IO
// or socket.io handshake.
var ErrHandshake = errors.New("handshake failed")

const defaultHandshakeTimeout = 10 * time.Second

// Handler receives connection lifecycle events. session.Tracker implements it.
type Handler interface {
	Connect(em session.Emitter) *session.Session
	Event(event string, payload []byte) error
	Disconnect(err error)
}

// Config configures a Client.
type Config struct {
	// Server is the collaborator address, e.g. http://127.0.0.1:8080.
	Server  string
	Dialer  *websocket.Dialer
	Backoff Backoff
	Logger  *zap.Logger
	// HandshakeTimeout bounds the Engine.IO and socket.io handshake
	// (default 10s).
	HandshakeTimeout time.Duration
}

// Client maintains a socket.io connection until its context is cancelled.
type Client struct {
	endpoint string
	dialer   *websocket.Dialer
	backoff  Backoff
	logger   *zap.Logger

	handshakeTimeout time.Duration
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := EndpointURL(cfg.Server)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: endpoint,
		dialer:   cfg.Dialer,
		backoff:  cfg.Backoff,
		logger:   cfg.Logger,

		handshakeTimeout: cfg.HandshakeTimeout,
	}
	if c.handshakeTimeout <= 0 {
		c.handshakeTimeout = defaultHandshakeTimeout
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.backoff == (Backoff{}) {
		c.backoff = DefaultBackoff()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Endpoint returns the websocket URL the client dials.
func (c *Client) Endpoint() string { return c.endpoint }

// EndpointURL converts a server address into the socket.io websocket URL.
// http and https map to ws and wss; a bare host:port is treated as http.
func EndpointURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server address: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server address %q has no host", server)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	q := url.Values{}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run connects, dispatches events to h, and reconnects with backoff until
// ctx is cancelled. It returns nil on cancellation.
func (c *Client) Run(ctx context.Context, h Handler) error {
	attempt := 0
	for {
		connected, err := c.runOnce(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			attempt = 0
		}
		delay := c.backoff.DelayForAttempt(attempt)
		attempt++
		c.logger.Warn("connection lost, retrying",
			zap.String("endpoint", c.endpoint),
			zap.Duration("delay", delay),
			zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// runOnce serves a single connection. connected reports whether the
// handshake completed.
func (c *Client) runOnce(ctx context.Context, h Handler) (connected bool, err error) {
	ws, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	conn := &Conn{ws: ws}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	if err := ws.SetReadDeadline(time.Now().Add(c.handshakeTimeout)); err != nil {
		return false, err
	}
	hs, err := conn.handshake()
	if err != nil {
		return false, err
	}
	c.logger.Info("socket connected",
		zap.String("endpoint", c.endpoint),
		zap.String("sid", hs.SID),
		zap.Int("ping_interval_ms", hs.PingInterval),
		zap.Int("ping_timeout_ms", hs.PingTimeout))

	h.Connect(conn)
	err = c.readLoop(conn, hs, h)
	if ctx.Err() != nil {
		err = nil
	}
	h.Disconnect(err)
	return true, err
}

func (c *Client) readLoop(conn *Conn, hs Handshake, h Handler) error {
	timeout := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	if timeout <= 0 {
		// No heartbeat advertised: drop the handshake deadline and block.
		if err := conn.ws.SetReadDeadline(time.Time{}); err != nil {
			return err
		}
	}
	for {
		if timeout > 0 {
			if err := conn.ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}
		}
		p, err := conn.readPacket()
		if err != nil {
			return err
		}
		switch p.Type {
		case PacketPing:
			if err := conn.write(PongFrame()); err != nil {
				return err
			}
		case PacketClose:
			return errors.New("server closed the connection")
		case PacketMessage:
			m, err := ParseMessage(p.Data)
			if err != nil {
				c.logger.Warn("malformed message", zap.Error(err))
				continue
			}
			switch m.Type {
			case MessageEvent:
				name, payload, err := m.Event()
				if err != nil {
					c.logger.Warn("malformed event", zap.Error(err))
					continue
				}
				if err := h.Event(name, payload); err != nil {
					c.logger.Warn("event rejected", zap.String("event", name), zap.Error(err))
				}
			case MessageDisconnect:
				return errors.New("server disconnected the namespace")
			}
		}
	}
}

// Conn is one established socket.io connection. It implements
// session.Emitter.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

// Emit sends an event frame. Commands are fire-and-forget; no ack is
// requested.
func (c *Conn) Emit(event string, payload any) error {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *Conn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *Conn) readPacket() (Packet, error) {
	kind, frame, err := c.ws.ReadMessage()
	if err != nil {
		return Packet{}, err
	}
	if kind != websocket.TextMessage {
		return Packet{Type: PacketNoop}, nil
	}
	return ParsePacket(frame)
}

// handshake reads the open packet, joins the default namespace and waits
// for the server to acknowledge it.
func (c *Conn) handshake() (Handshake, error) {
	p, err := c.readPacket()
	if err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	hs, err := ParseHandshake(p)
	if err != nil {
		return Handshake{}, err
	}
	if err := c.write(ConnectFrame()); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	for {
		p, err := c.readPacket()
		if err != nil {
			return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		switch p.Type {
		case PacketPing:
			if err := c.write(PongFrame()); err != nil {
				return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
			}
			continue
		case PacketMessage:
		default:
			continue
		}
		m, err := ParseMessage(p.Data)
		if err != nil {
			return Handshake{}, fmt.Errorf("%w: %v", ErrHandshake, err)
		}
		switch m.Type {
		case MessageConnect:
			return hs, nil
		case MessageConnectError:
			return Handshake{}, fmt.Errorf("%w: server refused connect: %s", ErrHandshake, m.Data)
		}
	}
}
