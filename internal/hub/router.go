package hub

import (
	"errors"
	"runtime/debug"
	"time"

	"mindspark/realtime/internal/metrics"
	"mindspark/realtime/internal/models"

	"go.uber.org/zap"
)

// OnMessage handles one inbound frame. Failures are reported to the sender
// and never close the connection.
func (h *Hub) OnMessage(c *Connection, frame []byte) {
	if c.limiter != nil && !c.limiter.Allow() {
		h.sendError(c, errRateLimited)
		return
	}

	msg, err := models.DecodeInbound(frame)
	if err != nil {
		if errors.Is(err, models.ErrUnknownType) {
			h.sendError(c, errUnknownKind)
		} else {
			h.sendError(c, errMalformedFrame)
		}
		h.logger.Debug("rejected frame", zap.String("remote", c.remoteAddr), zap.Error(err))
		return
	}

	kind := models.InboundType(msg)
	metrics.EnvelopesReceived.WithLabelValues(kind).Inc()
	start := time.Now()

	if perr := h.dispatch(c, msg); perr != nil {
		h.sendError(c, perr)
	}
	metrics.HandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (h *Hub) dispatch(c *Connection, msg models.Inbound) (perr *ProtocolError) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("handler panic",
				zap.String("type", models.InboundType(msg)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			perr = errInternal
		}
	}()

	h.mu.RLock()
	state, identity := c.state, c.identity
	h.mu.RUnlock()

	if state == stateClosed {
		return nil
	}
	if auth, ok := msg.(models.Auth); ok {
		return h.handleAuth(c, auth)
	}
	if identity == nil {
		return errAuthRequired
	}

	switch m := msg.(type) {
	case models.JoinRoom:
		return h.handleJoinRoom(c, identity, m)
	case models.LeaveRoom:
		return h.handleLeaveRoom(c, identity, m)
	case models.ChatMessageRequest:
		return h.handleChatMessage(c, identity, m)
	case models.TypingStart:
		return h.handleTyping(c, identity, m.RoomID, true)
	case models.TypingStop:
		return h.handleTyping(c, identity, m.RoomID, false)
	case models.Heartbeat:
		return h.handleHeartbeat(c)
	case models.FocusSessionUpdate:
		return h.handleFocusSessionUpdate(c, identity, m)
	case models.GameChallenge:
		return h.handleGameChallenge(c, identity, m)
	default:
		return errUnknownKind
	}
}
