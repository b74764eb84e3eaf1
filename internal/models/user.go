package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxOpenPages caps the number of Open Pages an account can store.
const MaxOpenPages = 3

// User describes an account together with its publishing allowance. The Book a
// reader sees is the public face of the account, so the book title lives here.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	BookTitle string `json:"book_title"`
	Bio       string `gorm:"type:text" json:"bio"`

	// Open Pages ledger. LastGrantAt is truncated to UTC midnight so the daily
	// grant is idempotent per calendar day.
	OpenPages   int        `gorm:"not null;default:3" json:"open_pages"`
	LastGrantAt *time.Time `json:"last_grant_at"`

	Chapters []Chapter `gorm:"foreignKey:AuthorID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
