package models

import "time"

const FriendshipAccepted = "accepted"

type Friendship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	FriendID  string    `gorm:"index;not null" json:"friend_id"`
	Status    string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type FocusSession struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	Status      string    `json:"status"`
	DurationMin int       `json:"duration_minutes"`
	StartedAt   time.Time `json:"started_at"`
}

type Game struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Category string `json:"category"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

// All lists every model the service migrates.
func All() []any {
	return []any{
		&Profile{},
		&ChatRoom{},
		&ChatParticipant{},
		&ChatMessage{},
		&Friendship{},
		&FocusSession{},
		&Game{},
	}
}
