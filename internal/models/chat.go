package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRoom struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatParticipant is the durable membership record, one row per (room, user).
type ChatParticipant struct {
	RoomID     string    `gorm:"primaryKey" json:"room_id"`
	UserID     string    `gorm:"primaryKey" json:"user_id"`
	JoinedAt   time.Time `json:"joined_at"`
	LastReadAt time.Time `json:"last_read_at"`
}

type ChatMessage struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	RoomID    string    `gorm:"index;not null" json:"room_id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
	ReplyTo   *string   `json:"reply_to"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MessageView is a stored message joined with its sender's display data.
type MessageView struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ReplyTo   *string   `json:"reply_to"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
}
