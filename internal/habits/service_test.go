package habits

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func date(s string) db.Date {
	d, _ := db.ParseDate(s)
	return d
}

func at(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// fieldErr returns the field names of a validation error.
func fieldErr(err error) []string {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return nil
	}
	var fields []string
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	return fields
}

func TestCreate_Defaults(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T12:00:00Z"))
	user := uuid.New()

	h, err := svc.Create(context.Background(), user, CreateInput{Name: "  Read  "})
	require.NoError(t, err)

	assert.Equal(t, "Read", h.Name)
	assert.Equal(t, user, h.UserID)
	assert.Equal(t, db.FrequencyDaily, h.FrequencyType)
	assert.Equal(t, DefaultColor, h.Color)
	assert.Equal(t, string(IconTarget), h.Icon)
	assert.Equal(t, "UTC", h.Timezone)
	assert.NotEqual(t, uuid.Nil, h.ID)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"empty name", CreateInput{Name: "   "}, "name"},
		{"long name", CreateInput{Name: strings.Repeat("a", 101)}, "name"},
		{"bad frequency", CreateInput{Name: "x", FrequencyType: "hourly"}, "frequency_type"},
		{"bad color", CreateInput{Name: "x", Color: "blue"}, "color"},
		{"unknown icon", CreateInput{Name: "x", Icon: "rocket"}, "icon"},
		{"zero target", CreateInput{Name: "x", TargetDuration: intPtr(0)}, "target_duration"},
		{"bad reminder", CreateInput{Name: "x", ReminderTimes: []string{"7am"}}, "reminder_time[0]"},
		{"bad timezone", CreateInput{Name: "x", Timezone: "Nowhere/City"}, "timezone"},
		{"day out of range", CreateInput{Name: "x", FrequencyConfig: FrequencyConfigInput{Days: []int{7}}}, "frequency_config.days[0]"},
		{"times per week", CreateInput{Name: "x", FrequencyConfig: FrequencyConfigInput{TimesPerWeek: intPtr(8)}}, "frequency_config.times_per_week"},
		{"specific days without days", CreateInput{Name: "x", FrequencyType: db.FrequencySpecificDays}, "frequency_config.days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeStore().service(time.Now())
			_, err := svc.Create(context.Background(), uuid.New(), tt.in)
			require.Error(t, err)
			assert.ErrorAs(t, err, new(*validation.Error))
			assert.Contains(t, fieldErr(err), tt.field)
		})
	}
}

func TestGet_OtherUsersHabitIsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := store.service(time.Now())
	owner, stranger := uuid.New(), uuid.New()

	h, err := svc.Create(context.Background(), owner, CreateInput{Name: "Read"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), stranger, h.ID)
	assert.True(t, errors.Is(err, db.ErrNotFound))

	err = svc.Delete(context.Background(), stranger, h.ID)
	assert.True(t, errors.Is(err, db.ErrNotFound))

	_, err = svc.Complete(context.Background(), stranger, h.ID, CompleteInput{})
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestUpdate_Partial(t *testing.T) {
	store := newFakeStore()
	svc := store.service(time.Now())
	user := uuid.New()
	ctx := context.Background()

	h, err := svc.Create(ctx, user, CreateInput{Name: "Read", Color: "#112233", Description: strPtr("books")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user, h.ID, UpdateInput{Name: strPtr("Read more"), Description: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Read more", updated.Name)
	assert.Equal(t, "#112233", updated.Color, "unset fields are unchanged")
	assert.Nil(t, updated.Description, "empty description clears it")

	_, err = svc.Update(ctx, user, h.ID, UpdateInput{Name: strPtr("")})
	assert.ErrorAs(t, err, new(*validation.Error))

	_, err = svc.Update(ctx, user, h.ID, UpdateInput{FrequencyType: strPtr(db.FrequencySpecificDays)})
	assert.Contains(t, fieldErr(err), "frequency_config.days")

	_, err = svc.Update(ctx, user, uuid.New(), UpdateInput{Name: strPtr("x")})
	assert.True(t, errors.Is(err, db.ErrNotFound))
}

func TestArchive_HidesFromListButNotListAll(t *testing.T) {
	store := newFakeStore()
	svc := store.service(time.Now())
	user := uuid.New()
	ctx := context.Background()

	a, err := svc.Create(ctx, user, CreateInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, user, CreateInput{Name: "B"})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, user, a.ID))

	active, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all, err := svc.ListAll(ctx, user)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")
}

func TestComplete_DefaultsToTodayInUserTimezone(t *testing.T) {
	store := newFakeStore()
	store.timezone = "Asia/Tokyo"
	// 20:00 UTC on June 4th is already June 5th in Tokyo.
	svc := store.service(at("2024-06-04T20:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	h, err := svc.Create(ctx, user, CreateInput{Name: "Read"})
	require.NoError(t, err)

	c, err := svc.Complete(ctx, user, h.ID, CompleteInput{MoodScore: intPtr(4), Duration: intPtr(0), Notes: strPtr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-05", c.CompletedDate.String())
	assert.Equal(t, 4, *c.MoodScore)
	assert.Nil(t, c.Duration, "zero duration is stored as empty")
	assert.Nil(t, c.Notes, "blank notes are stored as empty")
}

func TestComplete_TwiceSameDay(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T12:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	h, err := svc.Create(ctx, user, CreateInput{Name: "Read"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, user, h.ID, CompleteInput{})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, user, h.ID, CompleteInput{})
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, "already completed today", err.Error())

	assert.Len(t, store.completions, 1)
	assert.Equal(t, 10, store.streaks[user].TotalPoints, "the rejected completion earns nothing")
}

func TestComplete_Validation(t *testing.T) {
	store := newFakeStore()
	svc := store.service(time.Now())
	user := uuid.New()

	h, err := svc.Create(context.Background(), user, CreateInput{Name: "Read"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    CompleteInput
		field string
	}{
		{"mood too high", CompleteInput{MoodScore: intPtr(6)}, "mood_score"},
		{"mood too low", CompleteInput{MoodScore: intPtr(0)}, "mood_score"},
		{"negative duration", CompleteInput{Duration: intPtr(-1)}, "duration"},
		{"long notes", CompleteInput{Notes: strPtr(strings.Repeat("n", 501))}, "notes"},
		{"bad date", CompleteInput{Date: "June 1"}, "completed_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Complete(context.Background(), user, h.ID, tt.in)
			assert.Contains(t, fieldErr(err), tt.field)
		})
	}
}

func TestComplete_AdvancesStreakRecord(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T12:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	read, err := svc.Create(ctx, user, CreateInput{Name: "Read"})
	require.NoError(t, err)
	walk, err := svc.Create(ctx, user, CreateInput{Name: "Walk"})
	require.NoError(t, err)

	for _, step := range []struct {
		habit uuid.UUID
		date  string
	}{
		{read.ID, "2024-06-03"},
		{read.ID, "2024-06-04"},
		{walk.ID, "2024-06-04"}, // same day: streak unchanged
		{read.ID, "2024-06-05"},
	} {
		_, err := svc.Complete(ctx, user, step.habit, CompleteInput{Date: step.date})
		require.NoError(t, err)
	}

	rec := store.streaks[user]
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.CurrentStreak)
	assert.Equal(t, 3, rec.LongestStreak)
	assert.Equal(t, 40, rec.TotalPoints)
	assert.Equal(t, "2024-06-05", rec.LastActivity.String())
}

func TestComplete_RejectsFutureDates(t *testing.T) {
	store := newFakeStore()
	store.timezone = "Asia/Tokyo"
	// 2024-06-05 20:00 UTC is already June 6th in Tokyo.
	svc := store.service(at("2024-06-05T20:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	h, err := svc.Create(ctx, user, CreateInput{Name: "Read"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, user, h.ID, CompleteInput{Date: "2030-01-01"})
	assert.Contains(t, fieldErr(err), "completed_date")
	_, err = svc.Complete(ctx, user, h.ID, CompleteInput{Date: "2024-06-07"})
	assert.Contains(t, fieldErr(err), "completed_date")
	assert.Empty(t, store.completions)
	assert.Nil(t, store.streaks[user], "a rejected date must not touch the streak record")

	for _, day := range []string{"2024-06-05", "2024-06-06"} {
		_, err := svc.Complete(ctx, user, h.ID, CompleteInput{Date: day})
		require.NoError(t, err)
	}
	rec := store.streaks[user]
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, "2024-06-06", rec.LastActivity.String())
}

func TestComplete_StreakFailureKeepsCompletion(t *testing.T) {
	store := newFakeStore()
	store.streakErr = errors.New("connection reset")
	svc := store.service(at("2024-06-05T12:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	h, err := svc.Create(ctx, user, CreateInput{Name: "Read"})
	require.NoError(t, err)

	c, err := svc.Complete(ctx, user, h.ID, CompleteInput{})
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Len(t, store.completions, 1)
}

func TestUncomplete(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T12:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	h, err := svc.Create(ctx, user, CreateInput{Name: "Read"})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, user, h.ID, CompleteInput{})
	require.NoError(t, err)

	require.NoError(t, svc.Uncomplete(ctx, user, h.ID, date("2024-06-05")))
	assert.Empty(t, store.completions)

	err = svc.Uncomplete(ctx, user, h.ID, date("2024-06-05"))
	assert.True(t, errors.Is(err, db.ErrNotFound))

	// Completing again after undo is allowed.
	_, err = svc.Complete(ctx, user, h.ID, CompleteInput{})
	assert.NoError(t, err)
}
