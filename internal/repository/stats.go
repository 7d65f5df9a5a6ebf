package repository

import (
	"context"

	"littletimes/internal/cache"
	"littletimes/internal/models"

	"gorm.io/gorm"
)

// StatsRepository computes the admin dashboard totals.
type StatsRepository interface {
	Get(ctx context.Context) (*models.Stats, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository returns a StatsRepository backed by db.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// Get counts posts, comments, users and likes. Totals are cached briefly and
// dropped whenever the board changes.
func (r *statsRepository) Get(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := cache.Aside(ctx, cache.StatsKey, &stats, cache.StatsTTL, func() error {
		counts := []struct {
			model interface{}
			dest  *int64
		}{
			{&models.Post{}, &stats.TotalPosts},
			{&models.Comment{}, &stats.TotalComments},
			{&models.User{}, &stats.TotalUsers},
			{&models.Like{}, &stats.TotalLikes},
		}
		for _, c := range counts {
			if err := r.db.WithContext(ctx).Model(c.model).Count(c.dest).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
