package profile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

type mockStore struct {
	profiles map[uuid.UUID]db.Profile
	upserts  int
}

func (m *mockStore) Get(_ context.Context, userID uuid.UUID) (*db.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) Upsert(_ context.Context, p *db.Profile) error {
	m.upserts++
	m.profiles[p.ID] = *p
	return nil
}

func newTestService() (*Service, *mockStore) {
	store := &mockStore{profiles: map[uuid.UUID]db.Profile{}}
	return &Service{store: store, validate: validation.New()}, store
}

func strPtr(s string) *string { return &s }

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestAge(t *testing.T) {
	tests := []struct {
		name string
		dob  string
		want int
	}{
		{"birthday today", "1990-06-15", 34},
		{"birthday tomorrow", "1990-06-16", 33},
		{"birthday passed this month", "1990-06-01", 34},
		{"birthday next month", "1990-07-01", 33},
		{"born today", "2024-06-15", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dob, err := db.ParseDate(tt.dob)
			require.NoError(t, err)
			got := Age(&dob, today)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, Age(nil, today))
}

func TestGet_MissingProfileIsEmpty(t *testing.T) {
	svc, _ := newTestService()
	user := uuid.New()

	v, err := svc.Get(context.Background(), user, today)
	require.NoError(t, err)
	assert.Equal(t, user, v.ID)
	assert.Equal(t, "UTC", v.Timezone)
	assert.Nil(t, v.Age)
}

func TestUpdate_Upserts(t *testing.T) {
	svc, store := newTestService()
	user := uuid.New()
	ctx := context.Background()

	v, err := svc.Update(ctx, user, UpdateInput{
		FullName:    strPtr("  Ada Lovelace "),
		DateOfBirth: strPtr("1990-06-01"),
		Timezone:    strPtr("Europe/London"),
	}, today)
	require.NoError(t, err)

	assert.Equal(t, 1, store.upserts)
	assert.Equal(t, "Ada Lovelace", *v.FullName)
	require.NotNil(t, v.Age)
	assert.Equal(t, 34, *v.Age)
	assert.Equal(t, "Europe/London", v.Timezone)

	// Clearing optional fields and leaving others untouched.
	v, err = svc.Update(ctx, user, UpdateInput{DateOfBirth: strPtr(""), Bio: strPtr("Reads a lot")}, today)
	require.NoError(t, err)
	assert.Nil(t, v.DateOfBirth)
	assert.Nil(t, v.Age)
	assert.Equal(t, "Ada Lovelace", *v.FullName)
	assert.Equal(t, "Reads a lot", *v.Bio)

	assert.Equal(t, "Europe/London", svc.Location(ctx, user).String())
}

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    UpdateInput
		field string
	}{
		{"bad date", UpdateInput{DateOfBirth: strPtr("01/06/1990")}, "date_of_birth"},
		{"future date", UpdateInput{DateOfBirth: strPtr("2030-01-01")}, "date_of_birth"},
		{"bad timezone", UpdateInput{Timezone: strPtr("Moon/Base")}, "timezone"},
		{"empty timezone", UpdateInput{Timezone: strPtr("")}, "timezone"},
		{"long bio", UpdateInput{Bio: strPtr(string(make([]byte, 501)))}, "bio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService()
			_, err := svc.Update(context.Background(), uuid.New(), tt.in, today)
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Zero(t, store.upserts)
		})
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	svc, store := newTestService()
	user := uuid.New()

	assert.Equal(t, time.UTC, svc.Location(context.Background(), user))

	store.profiles[user] = db.Profile{ID: user, Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, svc.Location(context.Background(), user))
}
