package repository

import (
	"context"
	"time"

	"littletimes/internal/models"

	"gorm.io/gorm"
)

// FreeTrialRepository persists sample issue requests.
type FreeTrialRepository interface {
	Create(ctx context.Context, ft *models.FreeTrial) error
	List(ctx context.Context, limit, offset int) ([]models.FreeTrial, int64, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type freeTrialRepository struct {
	db *gorm.DB
}

// NewFreeTrialRepository returns a FreeTrialRepository backed by db.
func NewFreeTrialRepository(db *gorm.DB) FreeTrialRepository {
	return &freeTrialRepository{db: db}
}

func (r *freeTrialRepository) Create(ctx context.Context, ft *models.FreeTrial) error {
	if ft.Status == "" {
		ft.Status = models.FreeTrialPending
	}
	if err := r.db.WithContext(ctx).Create(ft).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *freeTrialRepository) List(ctx context.Context, limit, offset int) ([]models.FreeTrial, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.FreeTrial{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var items []models.FreeTrial
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return items, total, nil
}

func (r *freeTrialRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.FreeTrial{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("FreeTrial", id)
	}
	return nil
}
