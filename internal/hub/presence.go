package hub

import (
	"hash/fnv"

	"mindspark/realtime/internal/presence"

	"go.uber.org/zap"
)

const presenceStripes = 64

func (h *Hub) presenceLock(userID string) func() {
	f := fnv.New32a()
	_, _ = f.Write([]byte(userID))
	mu := &h.presenceLocks[f.Sum32()%presenceStripes]
	mu.Lock()
	return mu.Unlock
}

// syncPresence publishes whatever the session registry currently says about
// userID. Calls for one identity are serialized, so the last publish always
// matches the registry even when a disconnect and a login race.
func (h *Hub) syncPresence(userID string) {
	if h.presence == nil {
		return
	}
	unlock := h.presenceLock(userID)
	defer unlock()

	h.mu.RLock()
	_, online := h.sessions[userID]
	h.mu.RUnlock()

	ctx, cancel := h.storeContext()
	defer cancel()
	if online {
		if err := h.presence.Online(ctx, userID); err != nil {
			h.logger.Warn("publish online", zap.String("user", userID), zap.Error(err))
		}
		return
	}
	if err := h.presence.Offline(ctx, userID); err != nil {
		h.logger.Warn("publish offline", zap.String("user", userID), zap.Error(err))
	}
}

// HandleRemotePresence applies an event from another instance. A login there
// that is newer than the local session of the same identity closes the local
// one, keeping one session per identity across the cluster.
func (h *Hub) HandleRemotePresence(event presence.Event) {
	if event.Status != presence.StatusOnline || event.UserID == "" {
		return
	}

	h.mu.Lock()
	c, ok := h.sessions[event.UserID]
	if !ok || !c.authedAt.Before(event.At) {
		h.mu.Unlock()
		return
	}
	notices := h.evictLocked(c)
	h.mu.Unlock()

	h.closeEvicted(c)
	h.deliver(notices)
	h.syncPresence(event.UserID)
	h.logger.Info("session taken over by another instance",
		zap.String("user", event.UserID), zap.String("instance", event.InstanceID), zap.String("remote", c.remoteAddr))
}
