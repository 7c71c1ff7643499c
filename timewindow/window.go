// Package timewindow computes prayer marking windows from a day's timetable. Every function is
// pure: the caller supplies "now".
package timewindow

import (
	"errors"
	"time"

	"github.com/hasanat/tracker/models"
)

const (
	MinOnTimeWindow     = 5
	MaxOnTimeWindow     = 120
	DefaultOnTimeWindow = models.DefaultOnTimeWindowMinutes
)

var (
	// ErrUnknownPrayer is returned for names outside the five markable prayers.
	ErrUnknownPrayer = errors.New("unknown prayer")
	// ErrTooEarly is returned when now is before the window opens.
	ErrTooEarly = errors.New("prayer window has not started")
	// ErrClosed is returned when now is after the window ended.
	ErrClosed = errors.New("prayer window has closed")
)

// Phase describes where now falls relative to a prayer window.
type Phase string

const (
	Upcoming Phase = "upcoming"
	Open     Phase = "active"
	Closed   Phase = "ended"
)

var successor = map[models.Prayer]models.Prayer{
	models.Fajr:    models.Sunrise,
	models.Dhuhr:   models.Asr,
	models.Asr:     models.Maghrib,
	models.Maghrib: models.Isha,
	models.Isha:    models.Midnight,
}

// Window is the open interval of a prayer plus its on-time deadline.
type Window struct {
	Prayer   models.Prayer
	Start    time.Time
	End      time.Time
	Deadline time.Time
}

// ClampMinutes bounds the on-time grace period to [5,120]. Unset values use the default.
func ClampMinutes(minutes int) int {
	switch {
	case minutes <= 0:
		return DefaultOnTimeWindow
	case minutes < MinOnTimeWindow:
		return MinOnTimeWindow
	case minutes > MaxOnTimeWindow:
		return MaxOnTimeWindow
	}
	return minutes
}

// For builds the window of p. onTimeMinutes is clamped.
func For(t *models.PrayerTimings, p models.Prayer, onTimeMinutes int) (Window, error) {
	next, ok := successor[p]
	if !ok {
		return Window{}, ErrUnknownPrayer
	}
	start, _ := t.At(p)
	end, _ := t.At(next)
	return Window{
		Prayer:   p,
		Start:    start,
		End:      end,
		Deadline: start.Add(time.Duration(ClampMinutes(onTimeMinutes)) * time.Minute),
	}, nil
}

// Phase classifies now against the window bounds. Both bounds are inclusive.
func (w Window) Phase(now time.Time) Phase {
	switch {
	case now.Before(w.Start):
		return Upcoming
	case now.After(w.End):
		return Closed
	default:
		return Open
	}
}

// Evaluate decides the status a mark at now would receive.
func (w Window) Evaluate(now time.Time) (models.PrayerStatus, error) {
	switch w.Phase(now) {
	case Upcoming:
		return "", ErrTooEarly
	case Closed:
		return "", ErrClosed
	}
	if now.After(w.Deadline) {
		return models.StatusLate, nil
	}
	return models.StatusOnTime, nil
}

// HasEnded reports whether the window closed strictly before now.
func (w Window) HasEnded(now time.Time) bool {
	return now.After(w.End)
}
