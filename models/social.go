package models

import "time"

// FriendshipStatus tracks a friend request lifecycle owned by the social graph service.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship links two users. One row exists per pair; either side may be UserID.
type Friendship struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_friendship_pair,priority:1" json:"user_id"`
	FriendID  uint             `gorm:"not null;uniqueIndex:idx_friendship_pair,priority:2;index" json:"friend_id"`
	Status    FriendshipStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Block hides two users from each other regardless of friendship.
type Block struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID uint      `gorm:"not null;uniqueIndex:idx_block_pair,priority:1" json:"blocker_id"`
	BlockedID uint      `gorm:"not null;uniqueIndex:idx_block_pair,priority:2;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPreference stores per-category opt-outs and quiet hours. A missing row means
// every category is enabled and quiet hours are off.
type NotificationPreference struct {
	UserID            uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PrayerMarked      bool      `gorm:"not null" json:"prayer_marked"`
	MissedPrayer      bool      `gorm:"not null" json:"missed_prayer"`
	Fasting           bool      `gorm:"not null" json:"fasting"`
	QuietHoursEnabled bool      `gorm:"not null" json:"quiet_hours_enabled"`
	QuietStart        string    `gorm:"size:5" json:"quiet_start"` // HH:MM in the user's timezone
	QuietEnd          string    `gorm:"size:5" json:"quiet_end"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultNotificationPreference is the preference applied when a user has never saved one.
func DefaultNotificationPreference(userID uint) NotificationPreference {
	return NotificationPreference{UserID: userID, PrayerMarked: true, MissedPrayer: true, Fasting: true}
}

// PushToken is a registered delivery endpoint for a user's device.
type PushToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"size:255;not null;uniqueIndex" json:"token"`
	Platform  string    `gorm:"size:16" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{}, &PrayerTimings{}, &PrayerRecord{}, &FastingRecord{}, &LedgerEntry{},
		&UserTotal{}, &DailyTotal{}, &Friendship{}, &Block{}, &NotificationPreference{}, &PushToken{},
	}
}
