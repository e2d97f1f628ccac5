// Package daykey owns the midnight truncation rule shared by the question
// dispenser, the attempt adjudicator and the leaderboard. Every day-scoped
// read and write goes through this package so the three can never disagree
// about which calendar day a record belongs to.
package daykey

import "time"

// Truncate drops the time-of-day component, keeping the location.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Today returns the current day key in UTC.
func Today() time.Time {
	return Truncate(time.Now().UTC())
}

// Yesterday returns the previous day key in UTC.
func Yesterday() time.Time {
	return Today().AddDate(0, 0, -1)
}

// Window returns the half-open interval [day, day+24h) for a day key.
func Window(day time.Time) (time.Time, time.Time) {
	return day, day.AddDate(0, 0, 1)
}
