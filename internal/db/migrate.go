package db

import (
	"stroke_registry/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Migrate performs automatic migration for the credential schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create the users table and its unique email index
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
