package hub

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mindspark/realtime/internal/models"
	"mindspark/realtime/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Hub) handleAuth(c *Connection, msg models.Auth) *ProtocolError {
	if strings.TrimSpace(msg.Token) == "" {
		return errTokenRequired
	}

	userID, err := h.verifier.Verify(msg.Token)
	if err != nil {
		h.logger.Debug("token rejected", zap.String("remote", c.remoteAddr), zap.Error(err))
		return errAuthFailed
	}

	ctx, cancel := h.storeContext()
	identity, err := h.stores.Identities.GetByID(ctx, userID)
	cancel()
	switch {
	case errors.Is(err, repositories.ErrUserNotFound), err == nil && identity == nil:
		return errUserNotFound
	case err != nil:
		h.logger.Error("load identity", zap.String("user", userID), zap.Error(err))
		return errAuthFailed
	}

	h.mu.Lock()
	if c.state == stateClosed {
		h.mu.Unlock()
		return nil
	}
	var notices []notice
	var previousUser string
	if c.state == stateAuthenticated {
		// same transport, new logical connection
		previousUser = c.identity.ID
		notices = h.detachLocked(c)
		c.id = uuid.NewString()
	}
	var evicted *Connection
	if prev, ok := h.sessions[identity.ID]; ok && prev != c {
		notices = append(notices, h.evictLocked(prev)...)
		evicted = prev
	}
	c.identity = identity
	c.state = stateAuthenticated
	c.authedAt = time.Now()
	h.sessions[identity.ID] = c
	h.updateGaugesLocked()
	h.mu.Unlock()

	if evicted != nil {
		h.closeEvicted(evicted)
		h.logger.Info("replaced existing session", zap.String("user", identity.ID), zap.String("remote", evicted.remoteAddr))
	}
	h.deliver(notices)
	if previousUser != "" && previousUser != identity.ID {
		h.syncPresence(previousUser)
	}

	ctx, cancel = h.storeContext()
	if err := h.stores.Identities.TouchLastActive(ctx, identity.ID); err != nil {
		h.logger.Warn("touch last active", zap.String("user", identity.ID), zap.Error(err))
	}
	cancel()
	h.syncPresence(identity.ID)

	h.logger.Info("session authenticated", zap.String("user", identity.ID), zap.String("remote", c.remoteAddr))
	h.ToConnection(c, models.NewAuthSuccess(identity))
	return nil
}

// stillBoundLocked reports whether c is still the authenticated connection of
// identity. Store calls happen outside the lock, so handlers re-check this
// before mutating the index.
func (h *Hub) stillBoundLocked(c *Connection, identity *models.Identity) bool {
	return c.state == stateAuthenticated && c.identity == identity
}

func (h *Hub) handleJoinRoom(c *Connection, identity *models.Identity, msg models.JoinRoom) *ProtocolError {
	roomID := strings.TrimSpace(msg.RoomID)
	if roomID == "" {
		return errRoomIDRequired
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	room, err := h.stores.Rooms.GetActiveRoom(ctx, roomID)
	if errors.Is(err, repositories.ErrRoomNotFound) || (err == nil && room == nil) {
		return errRoomNotFound
	}
	if err != nil {
		h.logger.Error("load room", zap.String("room", roomID), zap.Error(err))
		return errJoinFailed
	}
	if err := h.stores.Memberships.UpsertMembership(ctx, roomID, identity.ID); err != nil {
		h.logger.Error("upsert membership", zap.String("room", roomID), zap.String("user", identity.ID), zap.Error(err))
		return errJoinFailed
	}

	h.mu.Lock()
	if !h.stillBoundLocked(c, identity) {
		h.mu.Unlock()
		return nil
	}
	added := h.addMemberLocked(c, roomID)
	var others []*Connection
	if added {
		others = h.roomRecipientsLocked(roomID, identity.ID)
	}
	h.mu.Unlock()

	h.ToConnection(c, models.NewRoomJoined(roomID, room.Name))
	if added {
		h.sendTo(others, models.NewUserJoinedRoom(roomID, identity.Ref()))
		h.logger.Debug("joined room", zap.String("room", roomID), zap.String("user", identity.ID))
	}
	return nil
}

func (h *Hub) handleLeaveRoom(c *Connection, identity *models.Identity, msg models.LeaveRoom) *ProtocolError {
	roomID := strings.TrimSpace(msg.RoomID)
	if roomID == "" {
		return errRoomIDRequired
	}

	h.mu.Lock()
	if !h.stillBoundLocked(c, identity) {
		h.mu.Unlock()
		return nil
	}
	if !h.leaveLocked(c, roomID) {
		h.mu.Unlock()
		return errNotRoomMember
	}
	others := h.roomRecipientsLocked(roomID, identity.ID)
	h.mu.Unlock()

	h.ToConnection(c, models.NewRoomLeft(roomID))
	h.sendTo(others, models.NewUserLeftRoom(roomID, identity.Ref()))
	return nil
}

func (h *Hub) handleChatMessage(c *Connection, identity *models.Identity, msg models.ChatMessageRequest) *ProtocolError {
	roomID := strings.TrimSpace(msg.RoomID)
	if roomID == "" {
		return errRoomIDRequired
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return errEmptyMessage
	}
	if utf8.RuneCountInString(msg.Content) > h.opts.MaxMessageLength {
		return protocolError(CodeMessageTooLong, fmt.Sprintf("Message too long (max %d characters)", h.opts.MaxMessageLength))
	}

	h.mu.RLock()
	member := h.stillBoundLocked(c, identity) && h.isMemberLocked(c, roomID)
	h.mu.RUnlock()
	if !member {
		return errNotRoomMember
	}

	ctx, cancel := h.storeContext()
	defer cancel()
	view, err := h.stores.Messages.InsertMessage(ctx, roomID, identity.ID, content, msg.ReplyTo)
	if err != nil {
		h.logger.Error("insert message", zap.String("room", roomID), zap.String("user", identity.ID), zap.Error(err))
		return errSendFailed
	}

	h.ToRoom(roomID, models.NewNewMessage(view), "")
	return nil
}

// handleTyping is fire-and-forget: non-members are ignored without an error.
func (h *Hub) handleTyping(c *Connection, identity *models.Identity, roomID string, typing bool) *ProtocolError {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil
	}

	h.mu.RLock()
	var others []*Connection
	if h.stillBoundLocked(c, identity) && h.isMemberLocked(c, roomID) {
		others = h.roomRecipientsLocked(roomID, identity.ID)
	}
	h.mu.RUnlock()

	h.sendTo(others, models.NewUserTyping(roomID, identity.Ref(), typing))
	return nil
}

func (h *Hub) handleHeartbeat(c *Connection) *ProtocolError {
	c.alive.Store(true)
	h.ToConnection(c, models.NewHeartbeatAck())
	return nil
}

func (h *Hub) handleFocusSessionUpdate(c *Connection, identity *models.Identity, msg models.FocusSessionUpdate) *ProtocolError {
	if strings.TrimSpace(msg.SessionID) == "" {
		return errSessionNotFound
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	if _, err := h.stores.FocusSessions.GetSessionForUser(ctx, msg.SessionID, identity.ID); err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return errSessionNotFound
		}
		h.logger.Error("load focus session", zap.String("session", msg.SessionID), zap.Error(err))
		return errFocusFailed
	}

	friends, err := h.stores.Friends.FriendsOf(ctx, identity.ID)
	if err != nil {
		h.logger.Error("load friends", zap.String("user", identity.ID), zap.Error(err))
		return errFocusFailed
	}

	update := models.NewFriendFocusUpdate(identity.Ref(), msg)
	h.mu.RLock()
	recipients := make([]*Connection, 0, len(friends))
	for _, id := range friends {
		if fc, ok := h.sessions[id]; ok {
			recipients = append(recipients, fc)
		}
	}
	h.mu.RUnlock()
	h.sendTo(recipients, update)
	return nil
}

func (h *Hub) handleGameChallenge(c *Connection, identity *models.Identity, msg models.GameChallenge) *ProtocolError {
	target := strings.TrimSpace(msg.TargetUserID)
	gameID := strings.TrimSpace(msg.GameID)
	if target == "" || gameID == "" {
		return errBadChallenge
	}

	if !h.IsOnline(target) {
		return errUserOffline
	}

	ctx, cancel := h.storeContext()
	defer cancel()
	game, err := h.stores.Games.GetGame(ctx, gameID)
	if errors.Is(err, repositories.ErrGameNotFound) {
		return errGameNotFound
	}
	if err != nil {
		h.logger.Error("load game", zap.String("game", gameID), zap.Error(err))
		return errChallengeFailed
	}

	challengeID := uuid.NewString()
	if !h.ToUser(target, models.NewChallengeReceived(challengeID, identity.Ref(), game, msg.ChallengeData)) {
		return errUserOffline
	}
	h.ToConnection(c, models.NewChallengeSent(challengeID, target))
	return nil
}

// IsOnline reports whether userID has an authenticated connection on this hub.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}
