package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// HabitCount pairs a habit with its completion count.
type HabitCount struct {
	Habit HabitInfo `json:"habit"`
	Count int       `json:"count"`
}

// Insights summarizes a set of completions. Fields are nil when there is no
// qualifying data.
type Insights struct {
	BestHabit         *HabitCount   `json:"best_habit"`
	MostProductiveDay *time.Weekday `json:"-"`
	AverageMood       *float64      `json:"average_mood"`
	AverageDuration   *int          `json:"average_duration"`
}

// MostProductiveDayName returns the weekday name, or "" when unknown.
func (in Insights) MostProductiveDayName() string {
	if in.MostProductiveDay == nil {
		return ""
	}
	return in.MostProductiveDay.String()
}

// Summarize computes the best-performing habit, most productive weekday,
// average mood and average duration of the given completions.
//
// Ties for best habit go to the name that sorts first; ties for weekday go to
// the earliest day of the week, Sunday first. Completions for habits missing
// from habits still count toward the other figures.
func Summarize(completions []Completion, habits []HabitInfo) Insights {
	var in Insights
	if len(completions) == 0 {
		return in
	}

	byHabit := make(map[string]int)
	var byWeekday [7]int
	for _, c := range completions {
		byHabit[c.HabitID]++
		byWeekday[DayOf(c.Date).Weekday()]++
	}

	candidates := make([]HabitCount, 0, len(habits))
	for _, h := range habits {
		if n := byHabit[h.ID]; n > 0 {
			candidates = append(candidates, HabitCount{Habit: h, Count: n})
		}
	}
	if len(candidates) > 0 {
		slices.SortFunc(candidates, func(a, b HabitCount) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Habit.Name, b.Habit.Name); c != 0 {
				return c
			}
			return cmp.Compare(a.Habit.ID, b.Habit.ID)
		})
		in.BestHabit = &candidates[0]
	}

	best := time.Sunday
	for d := time.Monday; d <= time.Saturday; d++ {
		if byWeekday[d] > byWeekday[best] {
			best = d
		}
	}
	in.MostProductiveDay = &best

	stats := Averages(completions)
	in.AverageMood = stats.AverageMood
	in.AverageDuration = stats.AverageDuration
	return in
}

// HabitStats are the per-habit figures shown on a habit's detail view.
type HabitStats struct {
	TotalCompletions int      `json:"total_completions"`
	AverageMood      *float64 `json:"average_mood"`
	AverageDuration  *int     `json:"average_duration"`
}

// Averages returns the completion count plus the mean mood (one decimal) and
// mean duration (nearest minute) over completions that recorded them.
func Averages(completions []Completion) HabitStats {
	stats := HabitStats{TotalCompletions: len(completions)}

	var moodSum, moodN, durSum, durN int
	for _, c := range completions {
		if c.MoodScore != nil {
			moodSum += *c.MoodScore
			moodN++
		}
		if c.DurationMinutes != nil {
			durSum += *c.DurationMinutes
			durN++
		}
	}

	if moodN > 0 {
		mood := math.Round(float64(moodSum)/float64(moodN)*10) / 10
		stats.AverageMood = &mood
	}
	if durN > 0 {
		dur := int(math.Round(float64(durSum) / float64(durN)))
		stats.AverageDuration = &dur
	}
	return stats
}
