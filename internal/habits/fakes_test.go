package habits

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/habitual/internal/db"
)

// fakeStore is an in-memory stand-in for the habit, completion, streak and
// timezone repositories.
type fakeStore struct {
	mu          sync.Mutex
	habits      map[uuid.UUID]*db.Habit
	completions []db.Completion
	streaks     map[uuid.UUID]*db.StreakRecord
	timezone    string
	created     time.Time

	streakErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		habits:   make(map[uuid.UUID]*db.Habit),
		streaks:  make(map[uuid.UUID]*db.StreakRecord),
		timezone: "UTC",
		created:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) service(now time.Time) *Service {
	return newService(f, &fakeCompletions{f}, &fakeStreaks{f}, f, WithClock(func() time.Time { return now }))
}

// HabitStore

func (f *fakeStore) Create(_ context.Context, h *db.Habit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	// Later habits are newer.
	f.created = f.created.Add(time.Minute)
	h.CreatedAt = f.created
	h.UpdatedAt = f.created
	cp := *h
	f.habits[h.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, userID, id uuid.UUID) (*db.Habit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return nil, db.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, userID uuid.UUID, includeArchived bool) ([]db.Habit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Habit
	for _, h := range f.habits {
		if h.UserID != userID || (!includeArchived && h.ArchivedAt != nil) {
			continue
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, h *db.Habit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.habits[h.ID]
	if !ok || existing.UserID != h.UserID {
		return db.ErrNotFound
	}
	cp := *h
	f.habits[h.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return db.ErrNotFound
	}
	delete(f.habits, id)
	kept := f.completions[:0]
	for _, c := range f.completions {
		if c.HabitID != id {
			kept = append(kept, c)
		}
	}
	f.completions = kept
	return nil
}

func (f *fakeStore) Archive(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return db.ErrNotFound
	}
	if h.ArchivedAt == nil {
		now := time.Now()
		h.ArchivedAt = &now
	}
	return nil
}

// TimezoneSource

func (f *fakeStore) Timezone(context.Context, uuid.UUID) (string, error) {
	return f.timezone, nil
}

type fakeCompletions struct{ f *fakeStore }

func (c *fakeCompletions) Create(_ context.Context, comp *db.Completion) error {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.habits[comp.HabitID]
	if !ok || h.UserID != comp.UserID {
		return db.ErrNotFound
	}
	for _, existing := range f.completions {
		if existing.HabitID == comp.HabitID && existing.CompletedDate.Equal(comp.CompletedDate.Time) {
			return db.ErrDuplicateCompletion
		}
	}
	comp.ID = uuid.New()
	f.completions = append(f.completions, *comp)
	return nil
}

func (c *fakeCompletions) Delete(_ context.Context, userID, habitID uuid.UUID, date db.Date) error {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.completions {
		if existing.UserID == userID && existing.HabitID == habitID && existing.CompletedDate.Equal(date.Time) {
			f.completions = append(f.completions[:i], f.completions[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (c *fakeCompletions) list(userID uuid.UUID, habitID *uuid.UUID, since db.Date) []db.Completion {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Completion
	for _, comp := range f.completions {
		if comp.UserID != userID || (habitID != nil && comp.HabitID != *habitID) {
			continue
		}
		if !since.IsZero() && comp.CompletedDate.Before(since.Time) {
			continue
		}
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedDate.After(out[j].CompletedDate.Time) })
	return out
}

func (c *fakeCompletions) ListForUser(_ context.Context, userID uuid.UUID, since db.Date) ([]db.Completion, error) {
	return c.list(userID, nil, since), nil
}

func (c *fakeCompletions) ListForHabit(_ context.Context, userID, habitID uuid.UUID, since db.Date) ([]db.Completion, error) {
	return c.list(userID, &habitID, since), nil
}

func (c *fakeCompletions) CompletedHabitIDs(_ context.Context, userID uuid.UUID, date db.Date) (map[uuid.UUID]bool, error) {
	done := make(map[uuid.UUID]bool)
	for _, comp := range c.list(userID, nil, date) {
		if comp.CompletedDate.Equal(date.Time) {
			done[comp.HabitID] = true
		}
	}
	return done, nil
}

type fakeStreaks struct{ f *fakeStore }

func (s *fakeStreaks) Get(_ context.Context, userID uuid.UUID) (*db.StreakRecord, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	rec, ok := s.f.streaks[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStreaks) Update(_ context.Context, userID uuid.UUID, fn func(*db.StreakRecord) error) (*db.StreakRecord, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	if s.f.streakErr != nil {
		return nil, s.f.streakErr
	}
	rec := db.StreakRecord{UserID: userID}
	if existing, ok := s.f.streaks[userID]; ok {
		rec = *existing
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	s.f.streaks[userID] = &rec
	return &rec, nil
}
