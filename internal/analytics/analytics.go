// Package analytics derives streaks, weekly trends and summary insights from
// habit completion rows.
//
// Every function here is pure: callers fetch rows from the store and pass
// "today" explicitly, so results are deterministic and safe for concurrent use.
package analytics

import (
	"strings"
	"time"
)

const (
	// TrendDays is the length of the weekly trend window.
	TrendDays = 7

	// InsightDays is the lookback window used for dashboard insights.
	InsightDays = 30

	// PointsPerCompletion is awarded to the streak record for every completion.
	PointsPerCompletion = 10
)

// Completion is the subset of a completion row the analytics need.
type Completion struct {
	HabitID         string
	Date            time.Time
	DurationMinutes *int
	MoodScore       *int
}

// HabitInfo carries the display metadata of a habit.
type HabitInfo struct {
	ID    string
	Name  string
	Color string
	Icon  string
}

// DayCount is the number of completions recorded on a calendar day.
type DayCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DayOf normalizes an instant to its calendar day: midnight UTC of the date
// as seen in t's own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar day of now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DayOf(now.In(loc))
}

// LoadLocation resolves an IANA timezone name. Empty, "Local" and unknown
// names resolve to UTC with ok false.
func LoadLocation(name string) (loc *time.Location, ok bool) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

// Dates extracts the calendar days of the given completions.
func Dates(completions []Completion) []time.Time {
	dates := make([]time.Time, len(completions))
	for i, c := range completions {
		dates[i] = c.Date
	}
	return dates
}

// daySet deduplicates dates into a set of calendar days.
func daySet(dates []time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		set[DayOf(d)] = struct{}{}
	}
	return set
}
