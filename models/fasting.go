package models

import "time"

// FastingRecord is the once-per-day fasting declaration. The only permitted change after
// creation is a single transition to Broken.
type FastingRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_fasting_user_date,priority:1" json:"user_id"`
	Date          string     `gorm:"size:10;not null;uniqueIndex:idx_fasting_user_date,priority:2" json:"date"`
	IsFasting     bool       `gorm:"not null" json:"is_fasting"`
	Broken        bool       `gorm:"not null;default:false" json:"broken"`
	BrokenAt      *time.Time `json:"broken_at"`
	PointsAwarded int        `gorm:"not null;default:0" json:"points_awarded"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
