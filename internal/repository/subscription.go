package repository

import (
	"context"
	"errors"
	"time"

	"littletimes/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository persists delivery orders.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
	ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error)
	Active(ctx context.Context, userID uint, now time.Time) (*models.Subscription, error)
	CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a SubscriptionRepository backed by db.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("이미 존재하는 주문번호입니다.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Subscription", orderID)
		}
		return nil, models.NewInternalError(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns the user's orders newest first.
func (r *subscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

// Active returns the paid subscription with the latest end date that has
// not ended at now, or nil when there is none.
func (r *subscriptionRepository) Active(ctx context.Context, userID uint, now time.Time) (*models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND end_date >= ?", userID, models.SubscriptionPaid, now).
		Order("end_date DESC").
		Limit(1).
		Find(&subs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

// CancelPendingBefore cancels unconfirmed orders created before cutoff and
// returns how many were cancelled.
func (r *subscriptionRepository) CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND created_at < ?", models.SubscriptionPending, cutoff).
		Updates(map[string]interface{}{"status": models.SubscriptionCancelled, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
