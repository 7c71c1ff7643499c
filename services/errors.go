// Package services holds the scoring operations: marking prayers, declaring and breaking fasts,
// and sweeping unmarked prayers into missed records.
package services

import "errors"

// Error is an expected outcome the caller can act on. None of these indicate a transient fault.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrTimingsNotFound = &Error{Code: "timings_not_found", Message: "prayer timings for this date have not been fetched"}
	ErrTooEarly        = &Error{Code: "too_early", Message: "prayer window has not started yet"}
	ErrWindowClosed    = &Error{Code: "window_closed", Message: "prayer window has closed"}
	ErrAlreadyLogged   = &Error{Code: "already_logged", Message: "prayer already logged"}
	ErrAlreadySet      = &Error{Code: "already_set", Message: "fasting already set for this date"}
	ErrAlreadyBroken   = &Error{Code: "already_broken", Message: "fast already broken"}
	ErrNotFasting      = &Error{Code: "not_fasting", Message: "not fasting on this date"}
	ErrNoFastingLog    = &Error{Code: "no_fasting_log", Message: "no fasting log for this date"}
	ErrInvalidPrayer   = &Error{Code: "invalid_prayer", Message: "unknown prayer"}
	ErrInvalidDate     = &Error{Code: "invalid_date", Message: "date must be YYYY-MM-DD"}
)

// AsError extracts a service error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
