// Package schedule manages the recurring events of a user's daily schedule.
package schedule

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/habitual/internal/analytics"
	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

// DefaultColor is used when an event is created without one.
const DefaultColor = "#000000"

// AllDays is every ISO weekday, Monday=1 through Sunday=7.
var AllDays = []int{1, 2, 3, 4, 5, 6, 7}

// Store persists schedule events.
type Store interface {
	Create(ctx context.Context, e *db.ScheduleEvent) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListActive(ctx context.Context, userID uuid.UUID) ([]db.ScheduleEvent, error)
	ListActiveOn(ctx context.Context, userID uuid.UUID, isoWeekday int) ([]db.ScheduleEvent, error)
}

// TimezoneSource resolves a user's timezone name.
type TimezoneSource interface {
	Timezone(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service handles schedule events.
type Service struct {
	store     Store
	timezones TimezoneSource
	validate  *validation.Validator
}

// New creates a schedule service backed by the database.
func New(database *db.DB) *Service {
	return &Service{
		store:     database.Schedule(),
		timezones: database.Profiles(),
		validate:  validation.New(),
	}
}

// CreateEventInput holds the fields of a new event.
type CreateEventInput struct {
	Title      string  `json:"title" validate:"required,max=200"`
	EventType  string  `json:"event_type" validate:"required,max=50"`
	StartTime  string  `json:"start_time" validate:"required,hhmm"`
	EndTime    *string `json:"end_time" validate:"omitempty,hhmm"`
	DaysOfWeek []int   `json:"days_of_week" validate:"omitempty,dive,min=1,max=7"`
	Color      string  `json:"color" validate:"omitempty,habitcolor"`
}

// ISOWeekday converts a time.Weekday to ISO numbering (Monday=1 … Sunday=7).
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// Create validates and stores a new event.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateEventInput) (*db.ScheduleEvent, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.EventType = strings.TrimSpace(in.EventType)
	if in.EndTime != nil && strings.TrimSpace(*in.EndTime) == "" {
		in.EndTime = nil
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	// "HH:MM" strings order the same way the times do.
	if in.EndTime != nil && *in.EndTime < in.StartTime {
		return nil, validation.FieldError("end_time", "must not be before start_time")
	}

	days := AllDays
	if len(in.DaysOfWeek) > 0 {
		days = slices.Clone(in.DaysOfWeek)
		slices.Sort(days)
		days = slices.Compact(days)
	}
	color := in.Color
	if color == "" {
		color = DefaultColor
	}

	e := &db.ScheduleEvent{
		UserID:     userID,
		Title:      in.Title,
		EventType:  in.EventType,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		DaysOfWeek: slices.Clone(days),
		Color:      color,
		IsActive:   true,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("creating schedule event: %w", err)
	}
	return e, nil
}

// Delete removes one of the user's events.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("deleting schedule event: %w", err)
	}
	return nil
}

// Today returns the active events recurring on the weekday of now in the
// user's timezone, ordered by start time.
func (s *Service) Today(ctx context.Context, userID uuid.UUID, now time.Time) ([]db.ScheduleEvent, error) {
	name, err := s.timezones.Timezone(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	loc, _ := analytics.LoadLocation(name)

	events, err := s.store.ListActiveOn(ctx, userID, ISOWeekday(now.In(loc).Weekday()))
	if err != nil {
		return nil, fmt.Errorf("listing today's events: %w", err)
	}
	return nonNil(events), nil
}

// Week returns all of the user's active events ordered by start time.
func (s *Service) Week(ctx context.Context, userID uuid.UUID) ([]db.ScheduleEvent, error) {
	events, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return nonNil(events), nil
}

func nonNil(events []db.ScheduleEvent) []db.ScheduleEvent {
	if events == nil {
		return []db.ScheduleEvent{}
	}
	return events
}
