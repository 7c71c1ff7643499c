// Package notify tells a user's friends about their prayer and fasting activity. Delivery is
// fire-and-forget: nothing here can fail the write that triggered it.
package notify

import (
	"errors"
	"time"
)

// Category is a notification kind a recipient can opt out of.
type Category string

const (
	CategoryPrayerMarked Category = "prayer_marked"
	CategoryMissedPrayer Category = "missed_prayer"
	CategoryFasting      Category = "fasting"
)

// ErrTransport wraps delivery failures. It is logged and never surfaced to the acting user.
var ErrTransport = errors.New("push transport failure")

// Message is the content sent to every eligible friend.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Push is one message addressed to one device endpoint.
type Push struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// Receipt is the per-message outcome reported by the transport, aligned with the sent batch.
type Receipt struct {
	Token  string
	Status string
	Error  string
}

// Receipt errors the transport may report.
const (
	ReceiptOK                = "ok"
	ReceiptError             = "error"
	ErrorDeviceNotRegistered = "DeviceNotRegistered"
)

// Recipient is a friend eligible by graph position, before preference and quiet-hour filtering.
type Recipient struct {
	UserID     uint
	Location   *time.Location
	Preference Preference
	Tokens     []string
}
