package analytics

import (
	"slices"
	"time"
)

// CurrentStreak counts the consecutive calendar days, ending today or
// yesterday, that appear in dates.
//
// A streak last extended yesterday is still current: the user has until the
// end of today to keep it going. Dates after today are ignored. Input may
// contain duplicates and be in any order.
func CurrentStreak(dates []time.Time, today time.Time) int {
	days := daySet(dates)
	if len(days) == 0 {
		return 0
	}

	cursor := DayOf(today)
	if _, ok := days[cursor]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := days[cursor]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := days[cursor]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// LongestStreak returns the longest run of consecutive calendar days in dates.
func LongestStreak(dates []time.Time) int {
	set := daySet(dates)
	if len(set) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// StreakRecord is the persisted per-user streak summary.
type StreakRecord struct {
	CurrentStreak int
	LongestStreak int
	LastActivity  *time.Time
	TotalPoints   int
}

// AdvanceStreak applies one completion recorded for the given day.
//
// The first activity starts the streak at 1. Activity the day after the last
// one extends it, activity on the same day leaves it alone, and activity
// after a gap restarts it at 1. Backdated activity (before the last activity
// day) only earns points.
func AdvanceStreak(rec StreakRecord, activity time.Time) StreakRecord {
	day := DayOf(activity)
	rec.TotalPoints += PointsPerCompletion

	switch {
	case rec.LastActivity == nil:
		rec.CurrentStreak = 1
		rec.LastActivity = &day
	case day.Equal(*rec.LastActivity):
		if rec.CurrentStreak == 0 {
			rec.CurrentStreak = 1
		}
	case day.Equal(rec.LastActivity.AddDate(0, 0, 1)):
		rec.CurrentStreak++
		rec.LastActivity = &day
	case day.After(*rec.LastActivity):
		rec.CurrentStreak = 1
		rec.LastActivity = &day
	}

	rec.LongestStreak = max(rec.LongestStreak, rec.CurrentStreak)
	return rec
}
