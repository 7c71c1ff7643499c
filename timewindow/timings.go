package timewindow

import (
	"errors"
	"fmt"
	"time"

	"github.com/hasanat/tracker/models"
)

// ErrNotIncreasing is returned when a timetable's instants are out of order.
var ErrNotIncreasing = errors.New("prayer timings must be strictly increasing")

// DeriveMidnight returns the midpoint between maghrib and the following fajr, approximated as
// fajr plus one day.
func DeriveMidnight(fajr, maghrib time.Time) time.Time {
	nextFajr := fajr.Add(24 * time.Hour)
	return maghrib.Add(nextFajr.Sub(maghrib) / 2)
}

// Validate checks the ordering invariant of a timetable.
func Validate(t *models.PrayerTimings) error {
	names := []models.Prayer{models.Fajr, models.Sunrise, models.Dhuhr, models.Asr, models.Maghrib, models.Isha, models.Midnight}
	instants := t.Ordered()
	for i := 1; i < len(instants); i++ {
		if !instants[i].After(instants[i-1]) {
			return fmt.Errorf("%w: %s (%s) is not after %s (%s)", ErrNotIncreasing,
				names[i], instants[i].Format(time.RFC3339), names[i-1], instants[i-1].Format(time.RFC3339))
		}
	}
	return nil
}
