package hub

// Room membership index. Every function here expects h.mu to be held.
// Invariant: identity ∈ h.rooms[room] ⇔ room ∈ h.sessions[identity].rooms.

func (h *Hub) addMemberLocked(c *Connection, roomID string) bool {
	if _, ok := c.rooms[roomID]; ok {
		return false
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[c.identity.ID] = struct{}{}
	c.rooms[roomID] = struct{}{}
	h.updateGaugesLocked()
	return true
}

// removeMemberLocked drops userID from roomID and reports whether the room
// became empty and was deleted.
func (h *Hub) removeMemberLocked(roomID, userID string) bool {
	members, ok := h.rooms[roomID]
	if !ok {
		return true
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
		h.updateGaugesLocked()
		return true
	}
	return false
}

func (h *Hub) leaveLocked(c *Connection, roomID string) bool {
	if _, ok := c.rooms[roomID]; !ok {
		return false
	}
	delete(c.rooms, roomID)
	h.removeMemberLocked(roomID, c.identity.ID)
	return true
}

func (h *Hub) isMemberLocked(c *Connection, roomID string) bool {
	_, ok := c.rooms[roomID]
	return ok
}

// roomRecipientsLocked resolves the live connections of a room's members.
func (h *Hub) roomRecipientsLocked(roomID, excludeUserID string) []*Connection {
	members := h.rooms[roomID]
	out := make([]*Connection, 0, len(members))
	for userID := range members {
		if userID == excludeUserID {
			continue
		}
		if c, ok := h.sessions[userID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// RoomMembers returns the identity ids currently in roomID.
func (h *Hub) RoomMembers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[roomID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}
