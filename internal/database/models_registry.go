package database

import "littletimes/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.EmailConfirmation{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Subscription{},
		&models.FreeTrial{},
	}
}
