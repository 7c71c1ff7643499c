package models

import "time"

// Prayer names a point in the daily timetable. Sunrise and Midnight are boundaries only and
// cannot be marked.
type Prayer string

const (
	Fajr     Prayer = "fajr"
	Sunrise  Prayer = "sunrise"
	Dhuhr    Prayer = "dhuhr"
	Asr      Prayer = "asr"
	Maghrib  Prayer = "maghrib"
	Isha     Prayer = "isha"
	Midnight Prayer = "midnight"
)

// ObligatoryPrayers lists the five markable prayers in daily order.
var ObligatoryPrayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// IsObligatory reports whether p is one of the five markable prayers.
func (p Prayer) IsObligatory() bool {
	for _, o := range ObligatoryPrayers {
		if o == p {
			return true
		}
	}
	return false
}

// PrayerStatus is the terminal outcome recorded for a prayer.
type PrayerStatus string

const (
	StatusOnTime PrayerStatus = "on_time"
	StatusLate   PrayerStatus = "late"
	StatusMissed PrayerStatus = "missed"
)

// PrayerRecord is written exactly once per (user, date, prayer) and never changed afterwards.
type PrayerRecord struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;uniqueIndex:idx_prayer_record_user_date_prayer,priority:1" json:"user_id"`
	Date          string       `gorm:"size:10;not null;uniqueIndex:idx_prayer_record_user_date_prayer,priority:2;index" json:"date"`
	Prayer        Prayer       `gorm:"size:16;not null;uniqueIndex:idx_prayer_record_user_date_prayer,priority:3" json:"prayer"`
	Status        PrayerStatus `gorm:"size:16;not null" json:"status"`
	MarkedAt      *time.Time   `json:"marked_at"`
	PointsAwarded int          `gorm:"not null;default:0" json:"points_awarded"`
	WindowStart   time.Time    `gorm:"not null" json:"window_start"`
	WindowEnd     time.Time    `gorm:"not null" json:"window_end"`
	CreatedAt     time.Time    `json:"created_at"`
}
