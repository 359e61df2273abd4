package timex

import "time"

// Clock supplies the current time and calendar arithmetic. The session
// lifecycle engine depends on this interface instead of time.Now so
// tests can pin the clock.
type Clock interface {
	Now() time.Time
	AddDays(t time.Time, days int) time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func NewSystemClock() *SystemClock { return &SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now() }

// AddDays shifts t by the given number of calendar days.
func (SystemClock) AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
