package repositories

import (
	"context"
	"errors"
	"time"

	"mindspark/realtime/internal/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type ProfileRepository struct {
	DB *gorm.DB
}

// GetByID returns the identity snapshot for a profile.
func (r *ProfileRepository) GetByID(ctx context.Context, userID string) (*models.Identity, error) {
	var profile models.Profile
	err := r.DB.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile.Identity(), nil
}

func (r *ProfileRepository) TouchLastActive(ctx context.Context, userID string) error {
	result := r.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", userID).
		Update("last_activity", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
