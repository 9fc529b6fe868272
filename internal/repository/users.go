package repository

import (
	"context"                         // Request-scoped cancellation
	"errors"                          // Error matching
	"fmt"                             // Error wrapping
	"strings"                         // String trimming
	"stroke_registry/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// UserRepository is the credential store. Users are never updated or deleted.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// GormUserRepository stores users in the relational users table
type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user, failing with ErrDuplicateEmail on the unique index
func (r *GormUserRepository) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	user := domain.User{Email: email, Password: passwordHash}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

// isDuplicateKey also matches raw driver messages for driver versions
// that do not implement gorm's error translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
