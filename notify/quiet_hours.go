package notify

import (
	"strconv"
	"strings"
	"time"

	"github.com/hasanat/tracker/models"
)

// Preference is the parsed form of models.NotificationPreference.
type Preference struct {
	PrayerMarked bool
	MissedPrayer bool
	Fasting      bool
	QuietEnabled bool
	QuietStart   int // minutes after local midnight
	QuietEnd     int
}

// DefaultPreference enables every category with quiet hours off.
func DefaultPreference() Preference {
	return PreferenceFromModel(models.DefaultNotificationPreference(0))
}

// PreferenceFromModel parses the stored HH:MM quiet-hour bounds. Unparseable bounds disable quiet
// hours.
func PreferenceFromModel(m models.NotificationPreference) Preference {
	p := Preference{
		PrayerMarked: m.PrayerMarked,
		MissedPrayer: m.MissedPrayer,
		Fasting:      m.Fasting,
		QuietEnabled: m.QuietHoursEnabled,
	}
	start, okStart := ParseClock(m.QuietStart)
	end, okEnd := ParseClock(m.QuietEnd)
	if !okStart || !okEnd {
		p.QuietEnabled = false
		return p
	}
	p.QuietStart, p.QuietEnd = start, end
	return p
}

// Allows reports whether the recipient accepts category.
func (p Preference) Allows(c Category) bool {
	switch c {
	case CategoryPrayerMarked:
		return p.PrayerMarked
	case CategoryMissedPrayer:
		return p.MissedPrayer
	case CategoryFasting:
		return p.Fasting
	}
	return false
}

// InQuietHours reports whether now, read in loc, falls inside the quiet range. The range is
// [start, end) and wraps past midnight when start > end. Equal bounds mean no quiet hours.
func (p Preference) InQuietHours(now time.Time, loc *time.Location) bool {
	if !p.QuietEnabled || p.QuietStart == p.QuietEnd {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	m := local.Hour()*60 + local.Minute()
	if p.QuietStart < p.QuietEnd {
		return m >= p.QuietStart && m < p.QuietEnd
	}
	return m >= p.QuietStart || m < p.QuietEnd
}

// ParseClock parses HH:MM into minutes after midnight.
func ParseClock(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
