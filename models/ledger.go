package models

import "time"

// LedgerAction classifies a scored event.
type LedgerAction string

const (
	ActionPrayerOnTime  LedgerAction = "prayer_on_time"
	ActionPrayerLate    LedgerAction = "prayer_late"
	ActionFastingBonus  LedgerAction = "fasting_bonus"
	ActionFastingRevoke LedgerAction = "fasting_revoke"
	ActionMissedPrayer  LedgerAction = "missed_prayer"
)

// LedgerEntry is an append-only scored event. Rows are never updated or deleted.
type LedgerEntry struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"not null;index:idx_ledger_user_date,priority:1" json:"user_id"`
	Action         LedgerAction `gorm:"size:32;not null" json:"action"`
	Points         int          `gorm:"not null" json:"points"`
	Date           string       `gorm:"size:10;not null;index:idx_ledger_user_date,priority:2" json:"date"`
	Prayer         *Prayer      `gorm:"size:16" json:"prayer,omitempty"`
	IdempotencyKey string       `gorm:"size:191;not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

// UserTotal caches the all-time sum of a user's ledger.
type UserTotal struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	AllTime   int64     `gorm:"not null;default:0" json:"all_time"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyTotal caches the per-day sum of a user's ledger.
type DailyTotal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_daily_total_user_date,priority:1" json:"user_id"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_daily_total_user_date,priority:2" json:"date"`
	Total     int64     `gorm:"not null;default:0" json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}
