package models

import (
	"time"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile defaults applied when an identity signs in without a profile.
const (
	DefaultGrade  = "초등 1학년"
	DefaultAvatar = "🐻"
)

// Grades lists the grade labels offered by the sign-up form.
var Grades = []string{"초등 1학년", "초등 2학년", "초등 3학년", "초등 4학년", "초등 5학년", "초등 6학년"}

// User represents a reader account. Users are never hard-deleted; admins only
// change their role.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `json:"-"`
	Name             string     `gorm:"not null" json:"name"`
	Grade            string     `json:"grade"`
	Avatar           string     `json:"avatar"`
	Phone            string     `json:"phone,omitempty"`
	Address          string     `json:"address,omitempty"`
	Role             string     `gorm:"not null;default:user;index" json:"role"`
	OAuthProvider    string     `gorm:"column:oauth_provider" json:"oauth_provider,omitempty"`
	OAuthSubject     *string    `gorm:"column:oauth_subject;uniqueIndex" json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// EmailConfirmed reports whether the user finished the confirmation step.
func (u *User) EmailConfirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// EmailConfirmation is a single-use token mailed after registration.
type EmailConfirmation struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
