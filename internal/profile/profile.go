// Package profile reads and updates a user's personal details.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/habitual/internal/analytics"
	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

// Store persists profiles.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
	Upsert(ctx context.Context, p *db.Profile) error
}

// Service handles profile reads and updates.
type Service struct {
	store    Store
	validate *validation.Validator
}

// New creates a profile service backed by the database.
func New(database *db.DB) *Service {
	return &Service{store: database.Profiles(), validate: validation.New()}
}

// View is a profile plus the age derived from its date of birth.
type View struct {
	*db.Profile
	Age *int `json:"age"`
}

// UpdateInput holds a profile update. Nil fields are left unchanged; empty
// strings clear optional fields.
type UpdateInput struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender      *string `json:"gender" validate:"omitempty,max=50"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	Timezone    *string `json:"timezone" validate:"omitempty,timezone"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
}

// Get returns the user's profile. A user without a stored profile gets an
// empty one in UTC.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, today time.Time) (*View, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		p = &db.Profile{ID: userID, Timezone: "UTC"}
	} else if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return &View{Profile: p, Age: Age(p.DateOfBirth, today)}, nil
}

// blankToNil trims s and returns nil when nothing is left.
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Update applies in to the user's profile, creating it when missing.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput, today time.Time) (*View, error) {
	isBlank := func(p *string) bool { return p != nil && strings.TrimSpace(*p) == "" }

	// Empty strings mean "clear"; validate only what is being set.
	check := in
	for _, f := range []**string{&check.FullName, &check.DateOfBirth, &check.Gender, &check.Bio, &check.AvatarURL} {
		if isBlank(*f) {
			*f = nil
		}
	}
	if isBlank(in.Timezone) {
		return nil, validation.FieldError("timezone", "is required")
	}
	if err := s.validate.Struct(check); err != nil {
		return nil, err
	}

	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		p = &db.Profile{ID: userID, Timezone: "UTC"}
	} else if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	if in.FullName != nil {
		p.FullName = blankToNil(in.FullName)
	}
	if in.Gender != nil {
		p.Gender = blankToNil(in.Gender)
	}
	if in.Bio != nil {
		p.Bio = blankToNil(in.Bio)
	}
	if in.AvatarURL != nil {
		p.AvatarURL = blankToNil(in.AvatarURL)
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = nil
		if v := blankToNil(in.DateOfBirth); v != nil {
			dob, err := db.ParseDate(*v)
			if err != nil {
				return nil, validation.FieldError("date_of_birth", "must be a date like 2024-06-01")
			}
			if dob.After(today) {
				return nil, validation.FieldError("date_of_birth", "must not be in the future")
			}
			p.DateOfBirth = &dob
		}
	}
	if in.Timezone != nil {
		p.Timezone = *in.Timezone
	}

	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	return &View{Profile: p, Age: Age(p.DateOfBirth, today)}, nil
}

// Age returns the whole years between dob and today, or nil without a dob.
// The birthday itself counts as the new age.
func Age(dob *db.Date, today time.Time) *int {
	if dob == nil || dob.IsZero() {
		return nil
	}
	ty, tm, td := today.Date()
	by, bm, bd := dob.Date()

	age := ty - by
	if tm < bm || (tm == bm && td < bd) {
		age--
	}
	return &age
}

// Location returns the user's timezone, UTC when unset or unknown.
func (s *Service) Location(ctx context.Context, userID uuid.UUID) *time.Location {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return time.UTC
	}
	loc, _ := analytics.LoadLocation(p.Timezone)
	return loc
}
