package habits

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/habitual/internal/db"
)

func TestIsDueOn(t *testing.T) {
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	archived := time.Now()

	tests := []struct {
		name  string
		habit db.Habit
		day   time.Time
		want  bool
	}{
		{"daily", db.Habit{FrequencyType: db.FrequencyDaily}, monday, true},
		{"weekly", db.Habit{FrequencyType: db.FrequencyWeekly}, sunday, true},
		{"custom", db.Habit{FrequencyType: db.FrequencyCustom}, sunday, true},
		{"specific day listed", db.Habit{FrequencyType: db.FrequencySpecificDays, FrequencyConfig: db.FrequencyConfig{Days: []int{1, 3}}}, monday, true},
		{"specific day unlisted", db.Habit{FrequencyType: db.FrequencySpecificDays, FrequencyConfig: db.FrequencyConfig{Days: []int{1, 3}}}, sunday, false},
		{"sunday is zero", db.Habit{FrequencyType: db.FrequencySpecificDays, FrequencyConfig: db.FrequencyConfig{Days: []int{0}}}, sunday, true},
		{"archived", db.Habit{FrequencyType: db.FrequencyDaily, ArchivedAt: &archived}, monday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDueOn(tt.habit, tt.day))
		})
	}
}

func TestIcons(t *testing.T) {
	assert.Len(t, Icons, 16)
	assert.True(t, IconWind.Valid())
	assert.False(t, Icon("rocket").Valid())
	assert.Equal(t, IconBook, IconOrDefault("book"))
	assert.Equal(t, DefaultIcon, IconOrDefault("rocket"))
}

// seed creates habits and completions directly in the fake store.
func seed(t *testing.T, svc *Service, user uuid.UUID, names ...string) []*db.Habit {
	t.Helper()
	var out []*db.Habit
	for _, name := range names {
		h, err := svc.Create(context.Background(), user, CreateInput{Name: name})
		require.NoError(t, err)
		out = append(out, h)
	}
	return out
}

func complete(t *testing.T, svc *Service, user, habit uuid.UUID, day string, mood, duration *int) {
	t.Helper()
	_, err := svc.Complete(context.Background(), user, habit, CompleteInput{Date: day, MoodScore: mood, Duration: duration})
	require.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T09:00:00Z"))
	user := uuid.New()

	hs := seed(t, svc, user, "Read", "Walk", "Stretch")
	complete(t, svc, user, hs[0].ID, "2024-06-03", nil, nil)
	complete(t, svc, user, hs[0].ID, "2024-06-04", nil, nil)
	complete(t, svc, user, hs[0].ID, "2024-06-05", nil, nil)
	complete(t, svc, user, hs[1].ID, "2024-06-05", nil, nil)

	// Someone else's activity must not leak in.
	other := uuid.New()
	oh := seed(t, svc, other, "Other")
	complete(t, svc, other, oh[0].ID, "2024-06-01", nil, nil)

	d, err := svc.Dashboard(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, 3, d.Stats.TotalHabits)
	assert.Equal(t, 2, d.Stats.CompletedToday)
	assert.Equal(t, 3, d.Stats.CurrentStreak)
	assert.Equal(t, 3, d.Stats.LongestStreak)
	assert.Equal(t, 40, d.Stats.TotalPoints)
	assert.Equal(t, 43, d.Stats.CompletionRate, "3 of 7 days active")

	require.Len(t, d.Stats.WeeklyTrend, 7)
	assert.Equal(t, "2024-05-30", d.Stats.WeeklyTrend[0].Date.Format(time.DateOnly))
	assert.Equal(t, 2, d.Stats.WeeklyTrend[6].Count)

	require.NotNil(t, d.Today)
	assert.Equal(t, 3, d.Today.Total)
	assert.Equal(t, 2, d.Today.Completed)
}

func TestDashboard_ArchivedHabitsLeaveCompletedToday(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T09:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	hs := seed(t, svc, user, "Read", "Walk")
	complete(t, svc, user, hs[0].ID, "2024-06-05", nil, nil)
	complete(t, svc, user, hs[1].ID, "2024-06-05", nil, nil)
	require.NoError(t, svc.Archive(ctx, user, hs[1].ID))

	d, err := svc.Dashboard(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, 1, d.Stats.TotalHabits)
	assert.Equal(t, 1, d.Stats.CompletedToday)
	assert.Equal(t, d.Today.Completed, d.Stats.CompletedToday)
	assert.Equal(t, 2, d.Stats.WeeklyTrend[6].Count, "history still counts the archived habit")
}

func TestDashboard_Empty(t *testing.T) {
	svc := newFakeStore().service(at("2024-06-05T09:00:00Z"))

	d, err := svc.Dashboard(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Zero(t, d.Stats.CurrentStreak)
	assert.Zero(t, d.Stats.TotalPoints)
	assert.Zero(t, d.Stats.CompletionRate)
	assert.Len(t, d.Stats.WeeklyTrend, 7)
	assert.NotNil(t, d.Today.Habits)
	assert.Empty(t, d.Today.Habits)
}

func TestToday_SkipsHabitsNotDue(t *testing.T) {
	store := newFakeStore()
	// 2024-06-05 is a Wednesday.
	svc := store.service(at("2024-06-05T09:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	_, err := svc.Create(ctx, user, CreateInput{Name: "Mon only", FrequencyType: db.FrequencySpecificDays, FrequencyConfig: FrequencyConfigInput{Days: []int{1}}})
	require.NoError(t, err)
	wed, err := svc.Create(ctx, user, CreateInput{Name: "Wed only", FrequencyType: db.FrequencySpecificDays, FrequencyConfig: FrequencyConfigInput{Days: []int{3}}})
	require.NoError(t, err)

	view, err := svc.Today(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Habits, 1)
	assert.Equal(t, wed.ID, view.Habits[0].ID)
	assert.False(t, view.Habits[0].Completed)
	assert.Equal(t, "2024-06-05", view.Date.String())
}

func TestAnalytics(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T09:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	hs := seed(t, svc, user, "Read", "Walk")
	// 2024-06-04 is a Tuesday.
	complete(t, svc, user, hs[0].ID, "2024-06-03", intPtr(4), intPtr(20))
	complete(t, svc, user, hs[0].ID, "2024-06-04", intPtr(5), nil)
	complete(t, svc, user, hs[1].ID, "2024-06-04", nil, intPtr(10))
	// Outside the 30-day window.
	complete(t, svc, user, hs[1].ID, "2024-04-01", intPtr(1), nil)

	require.NoError(t, svc.Archive(ctx, user, hs[0].ID))

	r, err := svc.Analytics(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, 3, r.TotalCompletions)
	require.NotNil(t, r.Insights.BestHabit)
	assert.Equal(t, "Read", r.Insights.BestHabit.Habit.Name, "archived habits still count")
	assert.Equal(t, 2, r.Insights.BestHabit.Count)
	assert.Equal(t, "Tuesday", r.MostProductiveDay)
	require.NotNil(t, r.Insights.AverageMood)
	assert.Equal(t, 4.5, *r.Insights.AverageMood)
	require.NotNil(t, r.Insights.AverageDuration)
	assert.Equal(t, 15, *r.Insights.AverageDuration)
	assert.Equal(t, 1, r.Stats.TotalHabits)
}

func TestDetail(t *testing.T) {
	store := newFakeStore()
	svc := store.service(at("2024-06-05T09:00:00Z"))
	user := uuid.New()
	ctx := context.Background()

	hs := seed(t, svc, user, "Read", "Walk")
	complete(t, svc, user, hs[0].ID, "2024-06-04", intPtr(3), intPtr(15))
	complete(t, svc, user, hs[0].ID, "2024-06-05", intPtr(4), intPtr(25))
	complete(t, svc, user, hs[0].ID, "2024-03-01", nil, nil)
	complete(t, svc, user, hs[1].ID, "2024-06-05", nil, nil)

	d, err := svc.Detail(ctx, user, hs[0].ID)
	require.NoError(t, err)

	assert.Equal(t, "Read", d.Habit.Name)
	assert.Len(t, d.Completions, 2, "only the last 30 days")
	assert.Equal(t, "2024-06-05", d.Completions[0].CompletedDate.String(), "newest first")
	assert.Equal(t, 2, d.CurrentStreak)
	assert.Equal(t, 7, d.CompletionRate, "2 of 30 days")
	assert.Equal(t, 2, d.TotalCompletions)
	require.NotNil(t, d.AverageMood)
	assert.Equal(t, 3.5, *d.AverageMood)
	require.NotNil(t, d.AverageDuration)
	assert.Equal(t, 20, *d.AverageDuration)
	assert.Len(t, d.RecentTrend, 7)

	_, err = svc.Detail(ctx, uuid.New(), hs[0].ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}
