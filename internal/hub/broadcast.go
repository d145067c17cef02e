package hub

import (
	"encoding/json"

	"mindspark/realtime/internal/metrics"
	"mindspark/realtime/internal/models"

	"go.uber.org/zap"
)

func (h *Hub) encode(env models.Outbound) []byte {
	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("encode envelope", zap.String("type", env.Kind()), zap.Error(err))
		return nil
	}
	return frame
}

func (h *Hub) sendTo(conns []*Connection, env models.Outbound) int {
	if len(conns) == 0 {
		return 0
	}
	frame := h.encode(env)
	if frame == nil {
		return 0
	}
	sent := 0
	for _, c := range conns {
		if c.enqueue(frame) {
			sent++
		}
	}
	return sent
}

// ToConnection sends env to a single connection.
func (h *Hub) ToConnection(c *Connection, env models.Outbound) bool {
	return h.sendTo([]*Connection{c}, env) == 1
}

// ToRoom sends env to every member of roomID present right now, except
// excludeUserID when non-empty.
func (h *Hub) ToRoom(roomID string, env models.Outbound, excludeUserID string) int {
	h.mu.RLock()
	recipients := h.roomRecipientsLocked(roomID, excludeUserID)
	h.mu.RUnlock()
	return h.sendTo(recipients, env)
}

// ToAll sends env to every authenticated connection, except excludeUserID.
func (h *Hub) ToAll(env models.Outbound, excludeUserID string) int {
	h.mu.RLock()
	recipients := make([]*Connection, 0, len(h.sessions))
	for userID, c := range h.sessions {
		if userID != excludeUserID {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()
	return h.sendTo(recipients, env)
}

// ToUser sends env to the live connection of userID, if any.
func (h *Hub) ToUser(userID string, env models.Outbound) bool {
	h.mu.RLock()
	c, ok := h.sessions[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.ToConnection(c, env)
}

func (h *Hub) sendError(c *Connection, perr *ProtocolError) {
	metrics.ErrorsSent.WithLabelValues(perr.Code).Inc()
	h.ToConnection(c, models.NewError(perr.Code, perr.Message))
}
