package hub

import (
	"context"
	"sync"
	"time"

	"mindspark/realtime/internal/metrics"
	"mindspark/realtime/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	WelcomeMessage  = "Welcome to MindSpark real-time connection!"
	ShutdownMessage = "Server is shutting down. Please reconnect in a moment."
)

type Options struct {
	LivenessInterval   time.Duration
	MaxMessageLength   int
	SendBuffer         int
	MaxFrameBytes      int64
	WriteTimeout       time.Duration
	StoreTimeout       time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func DefaultOptions() Options {
	return Options{
		LivenessInterval:   30 * time.Second,
		MaxMessageLength:   1000,
		SendBuffer:         256,
		MaxFrameBytes:      64 * 1024,
		WriteTimeout:       10 * time.Second,
		StoreTimeout:       5 * time.Second,
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
	}
}

// Hub owns every open connection, the session registry and the room
// membership index. All four maps and each connection's hub-state are
// guarded by mu.
type Hub struct {
	verifier TokenVerifier
	stores   Stores
	presence Presence
	logger   *zap.Logger
	opts     Options

	mu           sync.RWMutex
	conns        map[*Connection]struct{}
	sessions     map[string]*Connection
	rooms        map[string]map[string]struct{}
	shuttingDown bool

	liveness *livenessMonitor
	pumps    sync.WaitGroup

	presenceLocks [presenceStripes]sync.Mutex
}

func New(verifier TokenVerifier, stores Stores, opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.LivenessInterval <= 0 {
		opts.LivenessInterval = defaults.LivenessInterval
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = defaults.MaxMessageLength
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = defaults.MaxFrameBytes
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaults.StoreTimeout
	}

	return &Hub{
		verifier: verifier,
		stores:   stores,
		logger:   logger.Named("hub"),
		opts:     opts,
		conns:    make(map[*Connection]struct{}),
		sessions: make(map[string]*Connection),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// SetPresence attaches an optional presence publisher. Call before Start.
func (h *Hub) SetPresence(p Presence) { h.presence = p }

// Start launches the liveness monitor.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.liveness == nil {
		h.liveness = startLivenessMonitor(h, h.opts.LivenessInterval)
	}
}

// Serve runs a connection's pumps. It returns immediately; the pumps end
// when the transport closes.
func (h *Hub) Serve(ws *websocket.Conn, remoteAddr string) {
	c := h.newConnection(ws, remoteAddr)
	if err := h.attach(c, 2); err != nil {
		deadline := time.Now().Add(h.opts.WriteTimeout)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutdown"), deadline)
		ws.Close()
		return
	}

	go func() {
		defer h.pumps.Done()
		c.writePump()
	}()
	go func() {
		defer h.pumps.Done()
		c.readPump()
	}()
}

// OnConnect registers a new unauthenticated connection and greets it.
func (h *Hub) OnConnect(ws *websocket.Conn, remoteAddr string) (*Connection, error) {
	c := h.newConnection(ws, remoteAddr)
	if err := h.attach(c, 0); err != nil {
		return nil, err
	}
	return c, nil
}

// attach registers c and reserves pumps slots on the shutdown WaitGroup. Both
// happen under mu so Shutdown never waits on a group that can still grow.
func (h *Hub) attach(c *Connection, pumps int) error {
	h.mu.Lock()
	if h.shuttingDown {
		h.mu.Unlock()
		return ErrShuttingDown
	}
	h.pumps.Add(pumps)
	h.conns[c] = struct{}{}
	h.updateGaugesLocked()
	h.mu.Unlock()

	h.logger.Debug("connection opened", zap.String("conn", c.id), zap.String("remote", c.remoteAddr))
	h.ToConnection(c, models.NewConnectionEstablished(c.id, WelcomeMessage))
	return nil
}

// OnClose runs cleanup for a connection whose transport has closed.
func (h *Hub) OnClose(c *Connection) {
	h.disconnect(c)
}

// OnError runs cleanup for a connection whose transport failed.
func (h *Hub) OnError(c *Connection, err error) {
	h.logger.Debug("connection error", zap.String("remote", c.remoteAddr), zap.Error(err))
	h.disconnect(c)
	c.closeTransport()
}

// terminate force-closes a connection. Cleanup runs here, not when the
// reader later notices the dead socket.
func (h *Hub) terminate(c *Connection) bool {
	ran := h.disconnect(c)
	c.closeTransport()
	return ran
}

// disconnect is the single cleanup path. It returns false when the
// connection had already been cleaned up.
func (h *Hub) disconnect(c *Connection) bool {
	h.mu.Lock()
	if c.state == stateClosed {
		h.mu.Unlock()
		return false
	}
	identity := c.identity
	notices := h.detachLocked(c)
	c.state = stateClosed
	delete(h.conns, c)
	h.updateGaugesLocked()
	h.mu.Unlock()

	h.deliver(notices)
	c.closeQueue(0, "")

	if identity != nil {
		h.syncPresence(identity.ID)
		h.logger.Info("session closed", zap.String("user", identity.ID), zap.String("conn", c.ID()))
	}
	return true
}

// notice is a frame to deliver to a recipient set snapshotted under mu.
type notice struct {
	recipients []*Connection
	envelope   models.Outbound
}

// detachLocked removes c's identity from every room it joined and from
// the session registry. Rooms left empty are deleted.
func (h *Hub) detachLocked(c *Connection) []notice {
	identity := c.identity
	if identity == nil {
		return nil
	}

	var notices []notice
	for roomID := range c.rooms {
		if h.removeMemberLocked(roomID, identity.ID) {
			continue
		}
		notices = append(notices, notice{
			recipients: h.roomRecipientsLocked(roomID, ""),
			envelope:   models.NewUserLeftRoom(roomID, identity.Ref()),
		})
	}
	c.rooms = make(map[string]struct{})

	if h.sessions[identity.ID] == c {
		delete(h.sessions, identity.ID)
	}
	return notices
}

// evictLocked closes c's hub state for good, as disconnect does, but leaves
// the transport to the caller. Used when another connection takes over c's
// identity.
func (h *Hub) evictLocked(c *Connection) []notice {
	notices := h.detachLocked(c)
	c.state = stateClosed
	delete(h.conns, c)
	h.updateGaugesLocked()
	return notices
}

func (h *Hub) closeEvicted(c *Connection) {
	c.closeQueue(0, "")
	c.closeTransport()
}

func (h *Hub) deliver(notices []notice) {
	for _, n := range notices {
		h.sendTo(n.recipients, n.envelope)
	}
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	TotalConnections      int `json:"total_connections"`
	AuthenticatedSessions int `json:"authenticated_sessions"`
	ActiveRooms           int `json:"active_rooms"`
	TotalRoomConnections  int `json:"total_room_connections"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{
		TotalConnections:      len(h.conns),
		AuthenticatedSessions: len(h.sessions),
		ActiveRooms:           len(h.rooms),
	}
	for _, members := range h.rooms {
		s.TotalRoomConnections += len(members)
	}
	return s
}

// OnlineIdentities lists every identity with a live connection.
func (h *Hub) OnlineIdentities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown notifies every connection, then closes them all. It waits for
// the connection pumps until ctx ends.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.shuttingDown {
		h.mu.Unlock()
		return nil
	}
	h.shuttingDown = true
	monitor := h.liveness
	h.liveness = nil
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	if monitor != nil {
		monitor.stop()
	}

	h.logger.Info("shutting down", zap.Int("connections", len(conns)))

	h.sendTo(conns, models.NewServerShutdown(ShutdownMessage))
	for _, c := range conns {
		c.closeQueue(websocket.CloseGoingAway, "Server shutdown")
	}
	for _, c := range conns {
		h.disconnect(c)
	}

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, c := range conns {
			c.closeTransport()
		}
		return ctx.Err()
	}
}

func (h *Hub) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.opts.StoreTimeout)
}

func (h *Hub) updateGaugesLocked() {
	metrics.OpenConnections.Set(float64(len(h.conns)))
	metrics.Sessions.Set(float64(len(h.sessions)))
	metrics.ActiveRooms.Set(float64(len(h.rooms)))
}
