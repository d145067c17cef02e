package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is a registered MindSpark user. Only the columns the realtime
// service reads or touches are mapped.
type Profile struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	AvatarURL    string    `json:"avatar_url"`
	Points       int       `gorm:"default:0" json:"points"`
	Level        int       `gorm:"default:1" json:"level"`
	StreakDays   int       `gorm:"default:0" json:"streak_days"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Identity is the read-only snapshot a connection holds after auth.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Points    int    `json:"points"`
	Level     int    `json:"level"`
}

func (p *Profile) Identity() *Identity {
	return &Identity{
		ID:        p.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		Points:    p.Points,
		Level:     p.Level,
	}
}

// UserRef is the short form of an identity embedded in room events.
type UserRef struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (i *Identity) Ref() UserRef {
	return UserRef{ID: i.ID, Username: i.Username, AvatarURL: i.AvatarURL}
}
