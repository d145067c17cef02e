package hub

import (
	"context"

	"mindspark/realtime/internal/models"
)

// TokenVerifier resolves an auth token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// IdentityStore returns repositories.ErrUserNotFound for unknown ids.
type IdentityStore interface {
	GetByID(ctx context.Context, userID string) (*models.Identity, error)
	TouchLastActive(ctx context.Context, userID string) error
}

// RoomStore returns repositories.ErrRoomNotFound for unknown or inactive rooms.
type RoomStore interface {
	GetActiveRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
}

type MembershipStore interface {
	UpsertMembership(ctx context.Context, roomID, userID string) error
}

type MessageStore interface {
	InsertMessage(ctx context.Context, roomID, userID, content string, replyTo *string) (*models.MessageView, error)
}

type FriendStore interface {
	FriendsOf(ctx context.Context, userID string) ([]string, error)
}

type FocusSessionStore interface {
	GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.FocusSession, error)
}

type GameStore interface {
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
}

// Presence publishes session transitions outside this process.
type Presence interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

// Stores bundles the persistence collaborators the hub calls into.
type Stores struct {
	Identities    IdentityStore
	Rooms         RoomStore
	Memberships   MembershipStore
	Messages      MessageStore
	Friends       FriendStore
	FocusSessions FocusSessionStore
	Games         GameStore
}
