// Package bootstrap wires the database and Redis for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"littletimes/internal/cache"
	"littletimes/internal/config"
	"littletimes/internal/database"
	"littletimes/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultDevAdminEmail = "admin@littletimes.local"
	devAdminName         = "리틀타임즈 관리자"
)

// InitRuntime connects to DB and Redis and bootstraps the development admin.
// Redis is optional; the returned client is nil when it is unreachable.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return db, r, nil
}

// EnsureDevAdmin creates or promotes the configured admin account when
// running in development with DEV_BOOTSTRAP_ADMIN enabled.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = defaultDevAdminEmail
	}
	if cfg.DevAdminPassword == "" {
		return fmt.Errorf("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("email = ?", email).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			now := time.Now()
			admin = models.User{
				Email:            email,
				Password:         string(hashedPassword),
				Name:             devAdminName,
				Grade:            models.DefaultGrade,
				Avatar:           models.DefaultAvatar,
				Role:             models.RoleAdmin,
				EmailConfirmedAt: &now,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", admin.ID).
				Updates(map[string]any{"role": models.RoleAdmin}).Error
		}
	})
	if err != nil {
		return err
	}

	log.Printf("development admin bootstrap ensured for %s", email)
	return nil
}
