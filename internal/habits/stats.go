package habits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/habitual/internal/analytics"
	"github.com/justestif/habitual/internal/db"
)

// Stats are the user-level figures shown on the dashboard and analytics views.
type Stats struct {
	TotalHabits    int                  `json:"total_habits"`
	CompletedToday int                  `json:"completed_today"`
	CurrentStreak  int                  `json:"current_streak"`
	LongestStreak  int                  `json:"longest_streak"`
	TotalPoints    int                  `json:"total_points"`
	CompletionRate int                  `json:"completion_rate"` // share of the last 7 days with activity
	WeeklyTrend    []analytics.DayCount `json:"weekly_trend"`
}

// Dashboard is the landing view: stats plus today's habits.
type Dashboard struct {
	Stats Stats      `json:"stats"`
	Today *TodayView `json:"today"`
}

// Report is the analytics view: stats plus insights over the last 30 days.
type Report struct {
	Stats             Stats              `json:"stats"`
	Insights          analytics.Insights `json:"insights"`
	MostProductiveDay string             `json:"most_productive_day"`
	TotalCompletions  int                `json:"total_completions"`
}

// Detail is a single habit with its recent history and figures.
type Detail struct {
	Habit          *db.Habit            `json:"habit"`
	Completions    []db.Completion      `json:"completions"` // last 30 days, newest first
	CurrentStreak  int                  `json:"current_streak"`
	LongestStreak  int                  `json:"longest_streak"`
	CompletionRate int                  `json:"completion_rate"` // share of the last 30 days completed
	RecentTrend    []analytics.DayCount `json:"recent_trend"`
	analytics.HabitStats
}

// toAnalytics converts stored completions to the analytics input.
func toAnalytics(completions []db.Completion) []analytics.Completion {
	out := make([]analytics.Completion, len(completions))
	for i, c := range completions {
		out[i] = analytics.Completion{
			HabitID:         c.HabitID.String(),
			Date:            c.CompletedDate.Time,
			DurationMinutes: c.Duration,
			MoodScore:       c.MoodScore,
		}
	}
	return out
}

func habitInfos(habits []db.Habit) []analytics.HabitInfo {
	out := make([]analytics.HabitInfo, len(habits))
	for i, h := range habits {
		out[i] = analytics.HabitInfo{
			ID:    h.ID.String(),
			Name:  h.Name,
			Color: h.Color,
			Icon:  h.Icon,
		}
	}
	return out
}

// stats computes the shared user-level figures from the full completion history.
func (s *Service) stats(ctx context.Context, userID uuid.UUID, today time.Time, history []analytics.Completion) (Stats, error) {
	habits, err := s.habits.List(ctx, userID, false)
	if err != nil {
		return Stats{}, fmt.Errorf("listing habits: %w", err)
	}

	dates := analytics.Dates(history)
	trend := analytics.WeeklyTrend(dates, today)

	st := Stats{
		TotalHabits:    len(habits),
		CurrentStreak:  analytics.CurrentStreak(dates, today),
		LongestStreak:  analytics.LongestStreak(dates),
		CompletionRate: analytics.CompletionRate(analytics.ActiveDays(trend), analytics.TrendDays),
		WeeklyTrend:    trend,
	}
	st.CompletedToday = completedToday(history, habits, today)

	rec, err := s.streaks.Get(ctx, userID)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return Stats{}, fmt.Errorf("loading streak record: %w", err)
	default:
		st.TotalPoints = rec.TotalPoints
		st.LongestStreak = max(st.LongestStreak, rec.LongestStreak)
	}
	return st, nil
}

// completedToday counts today's completions of the given active habits.
// Completions of archived habits stay in the trend but not here.
func completedToday(history []analytics.Completion, active []db.Habit, today time.Time) int {
	ids := make(map[string]struct{}, len(active))
	for _, h := range active {
		ids[h.ID.String()] = struct{}{}
	}
	n := 0
	for _, c := range history {
		if _, ok := ids[c.HabitID]; ok && analytics.DayOf(c.Date).Equal(today) {
			n++
		}
	}
	return n
}

func (s *Service) history(ctx context.Context, userID uuid.UUID) ([]analytics.Completion, error) {
	completions, err := s.completions.ListForUser(ctx, userID, db.Date{})
	if err != nil {
		return nil, fmt.Errorf("loading completions: %w", err)
	}
	return toAnalytics(completions), nil
}

// Dashboard returns the user's headline stats and today's habits.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	today, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}

	st, err := s.stats(ctx, userID, today, history)
	if err != nil {
		return nil, err
	}
	view, err := s.todayView(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Stats: st, Today: view}, nil
}

// Analytics returns the user's stats and insights over the last 30 days.
func (s *Service) Analytics(ctx context.Context, userID uuid.UUID) (*Report, error) {
	today, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}

	st, err := s.stats(ctx, userID, today, history)
	if err != nil {
		return nil, err
	}

	// Insights name archived habits too: their completions are still history.
	all, err := s.habits.List(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	recent := analytics.Window(history, today, analytics.InsightDays)
	in := analytics.Summarize(recent, habitInfos(all))

	return &Report{
		Stats:             st,
		Insights:          in,
		MostProductiveDay: in.MostProductiveDayName(),
		TotalCompletions:  len(recent),
	}, nil
}

// Detail returns one habit with its last 30 days of completions and figures.
func (s *Service) Detail(ctx context.Context, userID, habitID uuid.UUID) (*Detail, error) {
	h, err := s.habits.Get(ctx, userID, habitID)
	if err != nil {
		return nil, fmt.Errorf("loading habit: %w", err)
	}
	today, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}

	all, err := s.completions.ListForHabit(ctx, userID, habitID, db.Date{})
	if err != nil {
		return nil, fmt.Errorf("loading completions: %w", err)
	}
	history := toAnalytics(all)
	dates := analytics.Dates(history)

	since := db.NewDate(today.AddDate(0, 0, -(analytics.InsightDays - 1)))
	var recentRows []db.Completion
	for _, c := range all {
		if !c.CompletedDate.Before(since.Time) && !c.CompletedDate.After(today) {
			recentRows = append(recentRows, c)
		}
	}
	recent := toAnalytics(recentRows)

	// A habit has at most one completion per day, so rows equal active days.
	rate := analytics.CompletionRate(len(recent), analytics.InsightDays)

	d := &Detail{
		Habit:          h,
		Completions:    recentRows,
		CurrentStreak:  analytics.CurrentStreak(dates, today),
		LongestStreak:  analytics.LongestStreak(dates),
		CompletionRate: rate,
		RecentTrend:    analytics.WeeklyTrend(dates, today),
		HabitStats:     analytics.Averages(recent),
	}
	if d.Completions == nil {
		d.Completions = []db.Completion{}
	}
	return d, nil
}
