package db

import (
	"time"

	"github.com/google/uuid"
)

// Frequency types a habit can have.
const (
	FrequencyDaily        = "daily"
	FrequencyWeekly       = "weekly"
	FrequencySpecificDays = "specific_days"
	FrequencyCustom       = "custom"
)

// User is an account that can sign in.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // empty for accounts created through the OAuth callback
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Profile holds the personal details of a user. Its ID equals the user ID.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	FullName    *string   `json:"full_name"`
	DateOfBirth *Date     `json:"date_of_birth"`
	Gender      *string   `json:"gender"`
	Timezone    string    `json:"timezone"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FrequencyConfig refines a habit's frequency type. Stored as JSONB.
type FrequencyConfig struct {
	Days           []int  `json:"days,omitempty"` // 0=Sunday … 6=Saturday
	TimesPerWeek   *int   `json:"times_per_week,omitempty"`
	TimesPerDay    *int   `json:"times_per_day,omitempty"`
	CustomSchedule string `json:"custom_schedule,omitempty"`
}

// Habit is a recurring activity a user tracks.
type Habit struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	FrequencyType   string          `json:"frequency_type"`
	FrequencyConfig FrequencyConfig `json:"frequency_config"`
	Color           string          `json:"color"`
	Icon            string          `json:"icon"`
	TargetDuration  *int            `json:"target_duration"` // minutes
	ReminderTimes   []string        `json:"reminder_time"`   // "HH:MM"
	Timezone        string          `json:"timezone"`
	ArchivedAt      *time.Time      `json:"archived_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Completion records that a habit was performed on a calendar day.
type Completion struct {
	ID            uuid.UUID      `json:"id"`
	HabitID       uuid.UUID      `json:"habit_id"`
	UserID        uuid.UUID      `json:"user_id"`
	CompletedDate Date           `json:"completed_date"`
	CompletedAt   time.Time      `json:"completed_at"`
	Duration      *int           `json:"duration"` // minutes
	Notes         *string        `json:"notes"`
	MoodScore     *int           `json:"mood_score"` // 1-5
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

// StreakRecord is the per-user streak summary.
type StreakRecord struct {
	UserID        uuid.UUID
	CurrentStreak int
	LongestStreak int
	LastActivity  *Date
	TotalPoints   int
	UpdatedAt     time.Time
}

// ScheduleEvent is a recurring block in a user's daily schedule.
type ScheduleEvent struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	EventType  string    `json:"event_type"`
	StartTime  string    `json:"start_time"` // "HH:MM"
	EndTime    *string   `json:"end_time"`
	DaysOfWeek []int     `json:"days_of_week"` // ISO: 1=Monday … 7=Sunday
	Color      string    `json:"color"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Template is a named bundle of suggested habits.
type Template struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Habits      []string  `json:"habits"`
	CreatedAt   time.Time `json:"created_at"`
}
