// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hasanat/tracker/models"
)

// NewDB opens a private in-memory sqlite database with every model migrated. A single
// connection is used so concurrent callers serialize the way row locks would on MySQL.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given username and on-time window.
func CreateUser(t testing.TB, db *gorm.DB, username string, windowMinutes int) *models.User {
	t.Helper()
	u := &models.User{Username: username, DisplayName: strings.ToUpper(username[:1]) + username[1:], OnTimeWindowMinutes: windowMinutes}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// Clock parses "HH:MM" on the given date in UTC.
func Clock(date, hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", date+" "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

// Timings builds a timetable with fajr 05:30, sunrise 06:50, dhuhr 12:30, asr 15:45,
// maghrib 18:20, isha 19:40 and midnight 23:55 UTC on date.
func Timings(userID uint, date string) *models.PrayerTimings {
	return &models.PrayerTimings{
		UserID:   userID,
		Date:     date,
		Fajr:     Clock(date, "05:30"),
		Sunrise:  Clock(date, "06:50"),
		Dhuhr:    Clock(date, "12:30"),
		Asr:      Clock(date, "15:45"),
		Maghrib:  Clock(date, "18:20"),
		Isha:     Clock(date, "19:40"),
		Midnight: Clock(date, "23:55"),
	}
}

// CreateTimings stores Timings(userID, date).
func CreateTimings(t testing.TB, db *gorm.DB, userID uint, date string) *models.PrayerTimings {
	t.Helper()
	tm := Timings(userID, date)
	if err := db.Create(tm).Error; err != nil {
		t.Fatalf("create timings: %v", err)
	}
	return tm
}
