package repositories

import (
	"context"
	"fmt"

	"mindspark/realtime/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	DB *gorm.DB
}

// InsertMessage stores a chat message and returns it with the sender's display fields.
func (r *MessageRepository) InsertMessage(ctx context.Context, roomID, userID, content string, replyTo *string) (*models.MessageView, error) {
	msg := models.ChatMessage{RoomID: roomID, UserID: userID, Content: content, ReplyTo: replyTo}

	var sender models.Profile
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if err := tx.Select("id", "username", "avatar_url").First(&sender, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("load sender: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.MessageView{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		ReplyTo:   msg.ReplyTo,
		CreatedAt: msg.CreatedAt,
		Username:  sender.Username,
		AvatarURL: sender.AvatarURL,
	}, nil
}
