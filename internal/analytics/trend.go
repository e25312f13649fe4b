package analytics

import (
	"math"
	"time"
)

// WeeklyTrend returns TrendDays entries, oldest first and ending today, with
// the number of completions recorded on each day. Every element of dates is
// one completion row; days without completions report 0.
func WeeklyTrend(dates []time.Time, today time.Time) []DayCount {
	counts := make(map[time.Time]int, len(dates))
	for _, d := range dates {
		counts[DayOf(d)]++
	}

	end := DayOf(today)
	trend := make([]DayCount, TrendDays)
	for i := range trend {
		day := end.AddDate(0, 0, i-(TrendDays-1))
		trend[i] = DayCount{Date: day, Count: counts[day]}
	}
	return trend
}

// ActiveDays counts the trend entries with at least one completion.
func ActiveDays(trend []DayCount) int {
	n := 0
	for _, d := range trend {
		if d.Count > 0 {
			n++
		}
	}
	return n
}

// CompletionRate is the share of days in a window that had at least one
// completion, as a whole percentage in [0, 100].
func CompletionRate(activeDays, windowDays int) int {
	if windowDays <= 0 || activeDays <= 0 {
		return 0
	}
	activeDays = min(activeDays, windowDays)
	return int(math.Round(float64(activeDays) / float64(windowDays) * 100))
}

// Window filters completions to the days in [today-days+1, today].
func Window(completions []Completion, today time.Time, days int) []Completion {
	end := DayOf(today)
	start := end.AddDate(0, 0, -(days - 1))

	var out []Completion
	for _, c := range completions {
		d := DayOf(c.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}
