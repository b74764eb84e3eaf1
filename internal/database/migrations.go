package database

import (
	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Chapter{},
		&models.BTLInvite{},
		&models.BTLThread{},
		&models.BTLMessage{},
		&models.Block{},
		&models.Report{},
		&models.CacheEntry{},
	)
}
