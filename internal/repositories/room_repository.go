package repositories

import (
	"context"
	"errors"
	"time"

	"mindspark/realtime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRoomNotFound = errors.New("room not found")

// DefaultRooms are created on boot when missing.
var DefaultRooms = []models.ChatRoom{
	{ID: "general", Name: "🌟 General Chat", Description: "Welcome to our community!", IsActive: true},
	{ID: "study", Name: "📚 Study Group", Description: "Share study tips and help each other learn", IsActive: true},
	{ID: "games", Name: "🎮 Game Zone", Description: "Discuss games and challenges", IsActive: true},
	{ID: "support", Name: "💙 Support Circle", Description: "A safe space for support and encouragement", IsActive: true},
}

type RoomRepository struct {
	DB *gorm.DB
}

// GetActiveRoom returns ErrRoomNotFound for unknown and inactive rooms alike.
func (r *RoomRepository) GetActiveRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", roomID, true).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) SeedDefaultRooms(ctx context.Context) error {
	rooms := make([]models.ChatRoom, len(DefaultRooms))
	copy(rooms, DefaultRooms)
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&rooms).Error
}

type ParticipantRepository struct {
	DB *gorm.DB
}

// UpsertMembership inserts the (room, user) row or bumps last_read_at when it exists.
func (r *ParticipantRepository) UpsertMembership(ctx context.Context, roomID, userID string) error {
	now := time.Now().UTC()
	row := models.ChatParticipant{RoomID: roomID, UserID: userID, JoinedAt: now, LastReadAt: now}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_read_at"}),
		}).
		Create(&row).Error
}
