package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock supplies the default reference date so tests can pin "today" via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for default reference dates. Pass nil to
// reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// today returns the current UTC calendar date at midnight.
func today() time.Time {
	return DateOnly(clock.Now())
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
