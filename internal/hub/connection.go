package hub

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"mindspark/realtime/internal/metrics"
	"mindspark/realtime/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Connection is one client transport plus the hub state bound to it.
type Connection struct {
	hub        *Hub
	ws         *websocket.Conn
	remoteAddr string
	limiter    *rate.Limiter
	alive      atomic.Bool

	// guarded by hub.mu
	id       string
	state    connState
	identity *models.Identity
	authedAt time.Time
	rooms    map[string]struct{}

	sendMu      sync.Mutex
	send        chan []byte
	sendClosed  bool
	closeCode   int
	closeReason string
	hook        func([]byte)
}

func (h *Hub) newConnection(ws *websocket.Conn, remoteAddr string) *Connection {
	c := &Connection{
		hub:        h,
		ws:         ws,
		remoteAddr: remoteAddr,
		id:         uuid.NewString(),
		state:      stateUnauthenticated,
		rooms:      make(map[string]struct{}),
		send:       make(chan []byte, h.opts.SendBuffer),
	}
	if h.opts.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(h.opts.RateLimitPerSecond), max(h.opts.RateLimitBurst, 1))
	}
	c.alive.Store(true)
	return c
}

// SetSendHook delivers outbound frames to fn instead of the socket queue.
// Used by tests that drive the hub without a network.
func (c *Connection) SetSendHook(fn func([]byte)) {
	c.sendMu.Lock()
	c.hook = fn
	c.sendMu.Unlock()
}

func (c *Connection) ID() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.id
}

func (c *Connection) Identity() *models.Identity {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.identity
}

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// enqueue never blocks. Frames for closed or saturated connections are dropped.
func (c *Connection) enqueue(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		metrics.DroppedFrames.Inc()
		return false
	}
	if c.hook != nil {
		c.hook(frame)
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		metrics.DroppedFrames.Inc()
		c.hub.logger.Debug("send queue full, dropping frame", zap.String("remote", c.remoteAddr))
		return false
	}
}

// closeQueue stops accepting frames. The writer drains what is queued and,
// when code is non-zero, finishes with a close frame.
func (c *Connection) closeQueue(code int, reason string) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// closeTransport drops the socket without a close handshake.
func (c *Connection) closeTransport() {
	if c.ws == nil {
		return
	}
	if err := c.ws.Close(); err != nil && !isExpectedCloseError(err) {
		c.hub.logger.Debug("close transport", zap.String("remote", c.remoteAddr), zap.Error(err))
	}
}

func (c *Connection) ping() {
	if c.ws == nil {
		return
	}
	deadline := time.Now().Add(c.hub.opts.WriteTimeout)
	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		c.hub.logger.Debug("ping failed", zap.String("remote", c.remoteAddr), zap.Error(err))
	}
}

func (c *Connection) readPump() {
	defer c.hub.OnClose(c)

	c.ws.SetReadLimit(c.hub.opts.MaxFrameBytes)
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !isExpectedCloseError(err) {
				c.hub.OnError(c, err)
			}
			return
		}
		c.hub.OnMessage(c, frame)
	}
}

func (c *Connection) writePump() {
	defer c.closeTransport()

	for frame := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			if !isExpectedCloseError(err) {
				c.hub.OnError(c, err)
			}
			return
		}
	}

	c.sendMu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.sendMu.Unlock()
	if code != 0 {
		deadline := time.Now().Add(c.hub.opts.WriteTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	}
}

func isExpectedCloseError(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}
