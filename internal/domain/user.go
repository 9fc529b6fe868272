package domain

// User Model
type User struct {
	ID       uint   `gorm:"primaryKey"`      // Primary key
	Email    string `gorm:"unique;not null"` // Unique email, stored as submitted
	Password string `gorm:"not null"`        // Hashed password
}
