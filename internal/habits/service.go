// Package habits manages a user's habits and their daily completions.
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

// ErrAlreadyCompleted is returned when a habit already has a completion on the date.
var ErrAlreadyCompleted = errors.New("already completed today")

// Defaults applied to new habits.
const (
	DefaultColor    = "#6366f1"
	DefaultTimezone = "UTC"
)

// HabitStore persists habits.
type HabitStore interface {
	Create(ctx context.Context, h *db.Habit) error
	Get(ctx context.Context, userID, id uuid.UUID) (*db.Habit, error)
	List(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]db.Habit, error)
	Update(ctx context.Context, h *db.Habit) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Archive(ctx context.Context, userID, id uuid.UUID) error
}

// CompletionStore persists habit completions.
type CompletionStore interface {
	Create(ctx context.Context, c *db.Completion) error
	Delete(ctx context.Context, userID, habitID uuid.UUID, date db.Date) error
	ListForUser(ctx context.Context, userID uuid.UUID, since db.Date) ([]db.Completion, error)
	ListForHabit(ctx context.Context, userID, habitID uuid.UUID, since db.Date) ([]db.Completion, error)
	CompletedHabitIDs(ctx context.Context, userID uuid.UUID, date db.Date) (map[uuid.UUID]bool, error)
}

// StreakStore persists the per-user streak record.
type StreakStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*db.StreakRecord, error)
	Update(ctx context.Context, userID uuid.UUID, fn func(*db.StreakRecord) error) (*db.StreakRecord, error)
}

// TimezoneSource resolves the timezone a user's "today" is computed in.
type TimezoneSource interface {
	Timezone(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service handles habit management and completion tracking.
type Service struct {
	habits      HabitStore
	completions CompletionStore
	streaks     StreakStore
	timezones   TimezoneSource
	validate    *validation.Validator
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used to compute "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a habit service backed by the database.
func New(database *db.DB, opts ...Option) *Service {
	return newService(database.Habits(), database.Completions(), database.Streaks(), database.Profiles(), opts...)
}

func newService(h HabitStore, c CompletionStore, st StreakStore, tz TimezoneSource, opts ...Option) *Service {
	s := &Service{
		habits:      h,
		completions: c,
		streaks:     st,
		timezones:   tz,
		validate:    validation.New(),
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FrequencyConfigInput is the client-supplied frequency refinement.
type FrequencyConfigInput struct {
	Days           []int  `json:"days" validate:"omitempty,dive,min=0,max=6"`
	TimesPerWeek   *int   `json:"times_per_week" validate:"omitempty,min=1,max=7"`
	TimesPerDay    *int   `json:"times_per_day" validate:"omitempty,min=1"`
	CustomSchedule string `json:"custom_schedule" validate:"max=200"`
}

func (f FrequencyConfigInput) toModel() db.FrequencyConfig {
	return db.FrequencyConfig{
		Days:           f.Days,
		TimesPerWeek:   f.TimesPerWeek,
		TimesPerDay:    f.TimesPerDay,
		CustomSchedule: f.CustomSchedule,
	}
}

// CreateInput holds the fields of a new habit.
type CreateInput struct {
	Name            string               `json:"name" validate:"required,max=100"`
	Description     *string              `json:"description" validate:"omitempty,max=1000"`
	FrequencyType   string               `json:"frequency_type" validate:"omitempty,oneof=daily weekly specific_days custom"`
	FrequencyConfig FrequencyConfigInput `json:"frequency_config"`
	Color           string               `json:"color" validate:"omitempty,habitcolor"`
	Icon            string               `json:"icon"`
	TargetDuration  *int                 `json:"target_duration" validate:"omitempty,min=1"`
	ReminderTimes   []string             `json:"reminder_time" validate:"omitempty,dive,hhmm"`
	Timezone        string               `json:"timezone" validate:"omitempty,timezone"`
}

// UpdateInput holds a partial habit update. Nil fields are left unchanged.
type UpdateInput struct {
	Name            *string               `json:"name" validate:"omitempty,min=1,max=100"`
	Description     *string               `json:"description" validate:"omitempty,max=1000"`
	FrequencyType   *string               `json:"frequency_type" validate:"omitempty,oneof=daily weekly specific_days custom"`
	FrequencyConfig *FrequencyConfigInput `json:"frequency_config"`
	Color           *string               `json:"color" validate:"omitempty,habitcolor"`
	Icon            *string               `json:"icon"`
	TargetDuration  *int                  `json:"target_duration" validate:"omitempty,min=1"`
	ReminderTimes   []string              `json:"reminder_time" validate:"omitempty,dive,hhmm"`
	Timezone        *string               `json:"timezone" validate:"omitempty,timezone"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// checkFrequency enforces the rules the struct tags cannot express.
func checkFrequency(freqType string, cfg db.FrequencyConfig) error {
	if freqType == db.FrequencySpecificDays && len(cfg.Days) == 0 {
		return validation.FieldError("frequency_config.days", "must have at least 1 entries")
	}
	return nil
}

func checkIcon(name string) error {
	if !Icon(name).Valid() {
		return validation.FieldError("icon", "must be a known icon")
	}
	return nil
}

// Create validates and stores a new habit for the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*db.Habit, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimmed(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	h := &db.Habit{
		UserID:          userID,
		Name:            in.Name,
		Description:     in.Description,
		FrequencyType:   in.FrequencyType,
		FrequencyConfig: in.FrequencyConfig.toModel(),
		Color:           in.Color,
		Icon:            in.Icon,
		TargetDuration:  in.TargetDuration,
		ReminderTimes:   in.ReminderTimes,
		Timezone:        in.Timezone,
	}
	if h.Description != nil && *h.Description == "" {
		h.Description = nil
	}
	if h.FrequencyType == "" {
		h.FrequencyType = db.FrequencyDaily
	}
	if h.Color == "" {
		h.Color = DefaultColor
	}
	if h.Icon == "" {
		h.Icon = string(DefaultIcon)
	}
	if h.Timezone == "" {
		h.Timezone = DefaultTimezone
	}
	if err := checkIcon(h.Icon); err != nil {
		return nil, err
	}
	if err := checkFrequency(h.FrequencyType, h.FrequencyConfig); err != nil {
		return nil, err
	}

	if err := s.habits.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("creating habit: %w", err)
	}
	s.logger.Debug("habit created", zap.Stringer("habit_id", h.ID), zap.Stringer("user_id", userID))
	return h, nil
}

// Get returns one of the user's habits. Missing or foreign habits return db.ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*db.Habit, error) {
	h, err := s.habits.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("loading habit: %w", err)
	}
	return h, nil
}

// List returns the user's active habits, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]db.Habit, error) {
	habits, err := s.habits.List(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	return habits, nil
}

// ListAll returns every habit of the user, archived ones included.
func (s *Service) ListAll(ctx context.Context, userID uuid.UUID) ([]db.Habit, error) {
	habits, err := s.habits.List(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	return habits, nil
}

// Update applies a partial update to one of the user's habits.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (*db.Habit, error) {
	in.Name = trimmed(in.Name)
	in.Description = trimmed(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	h, err := s.habits.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("loading habit: %w", err)
	}

	if in.Name != nil {
		h.Name = *in.Name
	}
	if in.Description != nil {
		h.Description = in.Description
		if *in.Description == "" {
			h.Description = nil
		}
	}
	if in.FrequencyType != nil {
		h.FrequencyType = *in.FrequencyType
	}
	if in.FrequencyConfig != nil {
		h.FrequencyConfig = in.FrequencyConfig.toModel()
	}
	if in.Color != nil {
		h.Color = *in.Color
	}
	if in.Icon != nil {
		if err := checkIcon(*in.Icon); err != nil {
			return nil, err
		}
		h.Icon = *in.Icon
	}
	if in.TargetDuration != nil {
		h.TargetDuration = in.TargetDuration
	}
	if in.ReminderTimes != nil {
		h.ReminderTimes = in.ReminderTimes
	}
	if in.Timezone != nil {
		h.Timezone = *in.Timezone
	}
	if err := checkFrequency(h.FrequencyType, h.FrequencyConfig); err != nil {
		return nil, err
	}

	if err := s.habits.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("updating habit: %w", err)
	}
	return h, nil
}

// Delete removes a habit and its completions.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.habits.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("deleting habit: %w", err)
	}
	return nil
}

// Archive hides a habit from the active list while keeping its history.
func (s *Service) Archive(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.habits.Archive(ctx, userID, id); err != nil {
		return fmt.Errorf("archiving habit: %w", err)
	}
	return nil
}

// location returns the user's timezone, falling back to UTC when the stored
// name cannot be loaded.
func (s *Service) location(ctx context.Context, userID uuid.UUID) (*time.Location, error) {
	name, err := s.timezones.Timezone(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	loc, ok := analytics.LoadLocation(name)
	if !ok {
		s.logger.Warn("unknown timezone, using UTC", zap.String("timezone", name), zap.Stringer("user_id", userID))
	}
	return loc, nil
}
