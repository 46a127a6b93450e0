package models

import "time"

// User represents an account that can sign in and own leads
type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Authentication fields
	Username     string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	TokenVersion int    `gorm:"default:0" json:"-"` // bumped on logout to revoke issued tokens

	// Account status
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`

	CreatedAt time.Time `gorm:"<-:create" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
