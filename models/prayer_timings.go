package models

import "time"

// PrayerTimings holds one user's timetable for one civil date. Instants are stored in UTC.
type PrayerTimings struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_timings_user_date,priority:1" json:"user_id"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_timings_user_date,priority:2" json:"date"`
	Fajr      time.Time `gorm:"not null;index" json:"fajr"`
	Sunrise   time.Time `gorm:"not null" json:"sunrise"`
	Dhuhr     time.Time `gorm:"not null" json:"dhuhr"`
	Asr       time.Time `gorm:"not null" json:"asr"`
	Maghrib   time.Time `gorm:"not null" json:"maghrib"`
	Isha      time.Time `gorm:"not null" json:"isha"`
	Midnight  time.Time `gorm:"not null" json:"midnight"`
	CreatedAt time.Time `json:"created_at"`
}

// At returns the instant stored for p. ok is false for names the timetable does not carry.
func (t *PrayerTimings) At(p Prayer) (time.Time, bool) {
	switch p {
	case Fajr:
		return t.Fajr, true
	case Sunrise:
		return t.Sunrise, true
	case Dhuhr:
		return t.Dhuhr, true
	case Asr:
		return t.Asr, true
	case Maghrib:
		return t.Maghrib, true
	case Isha:
		return t.Isha, true
	case Midnight:
		return t.Midnight, true
	}
	return time.Time{}, false
}

// Ordered returns the seven instants in timetable order.
func (t *PrayerTimings) Ordered() []time.Time {
	return []time.Time{t.Fajr, t.Sunrise, t.Dhuhr, t.Asr, t.Maghrib, t.Isha, t.Midnight}
}
