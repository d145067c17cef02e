package repositories

import (
	"context"
	"errors"

	"mindspark/realtime/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("focus session not found")
	ErrGameNotFound    = errors.New("game not found")
)

type FriendshipRepository struct {
	DB *gorm.DB
}

// FriendsOf returns the ids on the other side of every accepted friendship.
func (r *FriendshipRepository) FriendsOf(ctx context.Context, userID string) ([]string, error) {
	var rows []models.Friendship
	err := r.DB.WithContext(ctx).
		Where("(user_id = ? OR friend_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	friends := make([]string, 0, len(rows))
	for _, f := range rows {
		other := f.FriendID
		if other == userID {
			other = f.UserID
		}
		if _, dup := seen[other]; dup || other == userID {
			continue
		}
		seen[other] = struct{}{}
		friends = append(friends, other)
	}
	return friends, nil
}

type FocusSessionRepository struct {
	DB *gorm.DB
}

func (r *FocusSessionRepository) GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.FocusSession, error) {
	var session models.FocusSession
	err := r.DB.WithContext(ctx).First(&session, "id = ? AND user_id = ?", sessionID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

type GameRepository struct {
	DB *gorm.DB
}

func (r *GameRepository) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	var game models.Game
	err := r.DB.WithContext(ctx).Where("id = ? AND is_active = ?", gameID, true).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}
