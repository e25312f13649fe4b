package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/habitual/internal/analytics"
	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

// CompleteInput holds the optional details of a completion.
type CompleteInput struct {
	Date      string  `json:"completed_date" validate:"omitempty,isodate"` // defaults to today
	Duration  *int    `json:"duration" validate:"omitempty,min=0"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
	MoodScore *int    `json:"mood_score" validate:"omitempty,min=1,max=5"`
}

// today returns the user's current calendar day.
func (s *Service) today(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	loc, err := s.location(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	return analytics.Today(s.now(), loc), nil
}

// Complete records that the habit was performed. The date defaults to today
// in the user's timezone. A second completion for the same day returns
// ErrAlreadyCompleted. Each completion advances the user's streak record.
func (s *Service) Complete(ctx context.Context, userID, habitID uuid.UUID, in CompleteInput) (*db.Completion, error) {
	in.Notes = trimmed(in.Notes)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	today, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}
	date := db.NewDate(today)
	if in.Date != "" {
		parsed, err := db.ParseDate(in.Date)
		if err != nil {
			return nil, err
		}
		if parsed.After(today) {
			return nil, validation.FieldError("completed_date", "must not be in the future")
		}
		date = parsed
	}

	c := &db.Completion{
		HabitID:       habitID,
		UserID:        userID,
		CompletedDate: date,
		MoodScore:     in.MoodScore,
	}
	if in.Duration != nil && *in.Duration > 0 {
		c.Duration = in.Duration
	}
	if in.Notes != nil && strings.TrimSpace(*in.Notes) != "" {
		c.Notes = in.Notes
	}

	err = s.completions.Create(ctx, c)
	if errors.Is(err, db.ErrDuplicateCompletion) {
		return nil, ErrAlreadyCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("recording completion: %w", err)
	}

	// The completion is stored; a failed streak update only loses the bonus.
	if _, err := s.streaks.Update(ctx, userID, func(rec *db.StreakRecord) error {
		advanceRecord(rec, date)
		return nil
	}); err != nil {
		s.logger.Error("updating streak", zap.Error(err), zap.Stringer("user_id", userID))
	}

	return c, nil
}

// advanceRecord applies analytics.AdvanceStreak to a stored record.
func advanceRecord(rec *db.StreakRecord, date db.Date) {
	in := analytics.StreakRecord{
		CurrentStreak: rec.CurrentStreak,
		LongestStreak: rec.LongestStreak,
		TotalPoints:   rec.TotalPoints,
	}
	if rec.LastActivity != nil {
		last := rec.LastActivity.Time
		in.LastActivity = &last
	}

	out := analytics.AdvanceStreak(in, date.Time)

	rec.CurrentStreak = out.CurrentStreak
	rec.LongestStreak = out.LongestStreak
	rec.TotalPoints = out.TotalPoints
	if out.LastActivity != nil {
		last := db.NewDate(*out.LastActivity)
		rec.LastActivity = &last
	}
}

// Uncomplete removes the completion of a habit on date.
func (s *Service) Uncomplete(ctx context.Context, userID, habitID uuid.UUID, date db.Date) error {
	if err := s.completions.Delete(ctx, userID, habitID, date); err != nil {
		return fmt.Errorf("removing completion: %w", err)
	}
	return nil
}

// TodayHabit is a habit due today with its completion state.
type TodayHabit struct {
	db.Habit
	Completed bool `json:"completed"`
}

// TodayView lists the habits due today.
type TodayView struct {
	Date      db.Date      `json:"date"`
	Habits    []TodayHabit `json:"habits"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
}

// Today returns the user's active habits that are due today, each marked
// with whether it has been completed.
func (s *Service) Today(ctx context.Context, userID uuid.UUID) (*TodayView, error) {
	today, err := s.today(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.todayView(ctx, userID, today)
}

func (s *Service) todayView(ctx context.Context, userID uuid.UUID, today time.Time) (*TodayView, error) {
	habits, err := s.habits.List(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	date := db.NewDate(today)
	done, err := s.completions.CompletedHabitIDs(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("loading today's completions: %w", err)
	}

	view := &TodayView{Date: date, Habits: []TodayHabit{}}
	for _, h := range habits {
		if !IsDueOn(h, today) {
			continue
		}
		th := TodayHabit{Habit: h, Completed: done[h.ID]}
		if th.Completed {
			view.Completed++
		}
		view.Habits = append(view.Habits, th)
	}
	view.Total = len(view.Habits)
	return view, nil
}
