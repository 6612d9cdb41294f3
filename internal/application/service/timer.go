package service

import (
	"context"
	"time"
)

// TimerEngine fires one-shot jobs at wall-clock deadlines.
//
// Schedule with a deadline that is not in the future fires immediately.
// Scheduling an existing key replaces its timer. Cancel of an absent key is a
// no-op. After Cancel returns, the cancelled job does not start. FireAt
// reports the deadline of the live timer under key.
type TimerEngine interface {
	Schedule(key string, fireAt time.Time, job func()) error
	Cancel(key string) bool
	FireAt(key string) (time.Time, bool)
	Pending() int
	Stop()
}

// Messenger delivers reminder text to a user.
type Messenger interface {
	Send(ctx context.Context, userID, text string) error
}

// ReminderText is the message delivered when a task fires.
func ReminderText(name string) string {
	return "Reminder: " + name
}
