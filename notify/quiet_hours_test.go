package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hasanat/tracker/models"
)

func at(hhmm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-03-10 "+hhmm)
	return t
}

func TestInQuietHours_Wraparound(t *testing.T) {
	p := PreferenceFromModel(models.NotificationPreference{QuietHoursEnabled: true, QuietStart: "22:00", QuietEnd: "06:30"})

	cases := map[string]bool{
		"21:59": false,
		"22:00": true,
		"23:45": true,
		"00:00": true,
		"06:29": true,
		"06:30": false,
		"12:00": false,
	}
	for clock, want := range cases {
		assert.Equal(t, want, p.InQuietHours(at(clock), time.UTC), clock)
	}
}

func TestInQuietHours_SameDayRange(t *testing.T) {
	p := PreferenceFromModel(models.NotificationPreference{QuietHoursEnabled: true, QuietStart: "13:00", QuietEnd: "15:00"})
	assert.False(t, p.InQuietHours(at("12:59"), time.UTC))
	assert.True(t, p.InQuietHours(at("13:00"), time.UTC))
	assert.False(t, p.InQuietHours(at("15:00"), time.UTC))
}

func TestInQuietHours_UsesRecipientTimezone(t *testing.T) {
	p := PreferenceFromModel(models.NotificationPreference{QuietHoursEnabled: true, QuietStart: "22:00", QuietEnd: "06:00"})
	plus3 := time.FixedZone("UTC+3", 3*3600)
	// 20:00 UTC is 23:00 at UTC+3.
	assert.True(t, p.InQuietHours(at("20:00"), plus3))
	assert.False(t, p.InQuietHours(at("20:00"), time.UTC))
}

func TestInQuietHours_DisabledCases(t *testing.T) {
	off := PreferenceFromModel(models.NotificationPreference{QuietHoursEnabled: false, QuietStart: "00:00", QuietEnd: "23:59"})
	assert.False(t, off.InQuietHours(at("12:00"), time.UTC))

	equal := PreferenceFromModel(models.NotificationPreference{QuietHoursEnabled: true, QuietStart: "08:00", QuietEnd: "08:00"})
	assert.False(t, equal.InQuietHours(at("08:00"), time.UTC))

	garbled := PreferenceFromModel(models.NotificationPreference{QuietHoursEnabled: true, QuietStart: "25:00", QuietEnd: "06:00"})
	assert.False(t, garbled.QuietEnabled)
}

func TestPreferenceAllows(t *testing.T) {
	p := DefaultPreference()
	assert.True(t, p.Allows(CategoryPrayerMarked))
	assert.True(t, p.Allows(CategoryMissedPrayer))
	assert.True(t, p.Allows(CategoryFasting))
	assert.False(t, p.Allows(Category("unknown")))

	p.MissedPrayer = false
	assert.False(t, p.Allows(CategoryMissedPrayer))
}
