package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a forum account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Nickname     string         `gorm:"size:64;not null;default:''" json:"nickname"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Provider     string         `gorm:"size:32" json:"provider"`
	ProviderID   string         `gorm:"size:255;index" json:"provider_id"`
	AvatarURL    string         `gorm:"size:512" json:"avatar_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// Identity is the read-only author projection attached to every listed row.
type Identity struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"nickname"`
}

// NewIdentity prefers the nickname and falls back to the username.
func NewIdentity(id uint, username, nickname string) Identity {
	name := nickname
	if name == "" {
		name = username
	}
	return Identity{ID: id, DisplayName: name}
}

// Identity returns the public projection of the user.
func (u User) Identity() Identity {
	return NewIdentity(u.ID, u.Username, u.Nickname)
}
