package party

import (
	"time"
)

// =============================================================================
// CLOCK - Time source abstraction
// =============================================================================

// Clock supplies "now" to the status engine and the payment services.
// Production code uses SystemClock; tests use FixedClock to pin transitions
// to exact instants.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// =============================================================================
// EVENT TIME - When does a party end?
// =============================================================================

// EndInstant computes the party's effective end: the scheduled date combined
// with the start time when one is set, otherwise 23:59:59 on the scheduled
// date. No duration is tracked at this layer, so a party without a start
// time is treated as lasting the whole day.
func (p *Party) EndInstant() (time.Time, error) {
	if p.Date.IsZero() {
		return time.Time{}, &MalformedPartyError{PartyID: p.ID, Field: "date"}
	}
	if p.StartTime != nil {
		st := p.StartTime
		if st.Hour < 0 || st.Hour > 23 || st.Minute < 0 || st.Minute > 59 {
			return time.Time{}, &MalformedPartyError{PartyID: p.ID, Field: "start_time"}
		}
		return time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(),
			st.Hour, st.Minute, 0, 0, p.Date.Location()), nil
	}
	return endOfDay(p.Date), nil
}

func endOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, d.Location())
}

// DateOnly truncates t to its calendar date, preserving location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
