package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultOnTimeWindowMinutes is used when a user has not chosen a grace period.
const DefaultOnTimeWindowMinutes = 30

// User is the locally known profile of an authenticated account. Credentials live with the
// identity provider; only the fields the scoring core needs are stored here.
type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Username            string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	DisplayName         string         `gorm:"size:128" json:"display_name"`
	Timezone            string         `gorm:"size:64;default:'UTC'" json:"timezone"`
	OnTimeWindowMinutes int            `gorm:"default:30" json:"on_time_window_minutes"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps and defaults are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if u.OnTimeWindowMinutes == 0 {
		u.OnTimeWindowMinutes = DefaultOnTimeWindowMinutes
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// Location resolves the user's timezone, falling back to UTC for unknown names.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DisplayNameOrUsername is the name shown to friends.
func (u *User) DisplayNameOrUsername() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
