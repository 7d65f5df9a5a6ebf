package repository

import (
	"context"
	"errors"
	"time"

	"littletimes/internal/cache"
	"littletimes/internal/models"

	"gorm.io/gorm"
)

// ErrConfirmationInvalid is returned for unknown, used or expired tokens.
var ErrConfirmationInvalid = errors.New("confirmation token is invalid or expired")

// ConfirmationRepository stores e-mail confirmation tokens.
type ConfirmationRepository interface {
	Create(ctx context.Context, c *models.EmailConfirmation) error
	Consume(ctx context.Context, tokenHash string, now time.Time) (uint, error)
}

type confirmationRepository struct {
	db *gorm.DB
}

// NewConfirmationRepository returns a ConfirmationRepository backed by db.
func NewConfirmationRepository(db *gorm.DB) ConfirmationRepository {
	return &confirmationRepository{db: db}
}

func (r *confirmationRepository) Create(ctx context.Context, c *models.EmailConfirmation) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Consume marks the token used and the owner's e-mail confirmed in one
// transaction. It returns the confirmed user id.
func (r *confirmationRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (uint, error) {
	var userID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EmailConfirmation{}).
			Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConfirmationInvalid
		}

		var c models.EmailConfirmation
		if err := tx.Where("token_hash = ?", tokenHash).First(&c).Error; err != nil {
			return err
		}
		userID = c.UserID
		return tx.Model(&models.User{}).
			Where("id = ? AND email_confirmed_at IS NULL", c.UserID).
			Updates(map[string]interface{}{"email_confirmed_at": now, "updated_at": now}).Error
	})
	if err != nil {
		if errors.Is(err, ErrConfirmationInvalid) {
			return 0, models.NewValidationError("인증 링크가 만료되었거나 이미 사용되었습니다.")
		}
		return 0, models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return userID, nil
}
