package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles profile database operations.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the profile of a user.
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, full_name, date_of_birth, gender, timezone, avatar_url, bio, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.FullName,
		&p.DateOfBirth,
		&p.Gender,
		&p.Timezone,
		&p.AvatarURL,
		&p.Bio,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

// Upsert creates or replaces the profile of p.ID.
func (r *ProfileRepository) Upsert(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, date_of_birth, gender, timezone, avatar_url, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			timezone = EXCLUDED.timezone,
			avatar_url = EXCLUDED.avatar_url,
			bio = EXCLUDED.bio,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.FullName,
		p.DateOfBirth,
		p.Gender,
		p.Timezone,
		p.AvatarURL,
		p.Bio,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// Timezone returns the stored timezone of a user, or "UTC" when the user
// has no profile yet.
func (r *ProfileRepository) Timezone(ctx context.Context, userID uuid.UUID) (string, error) {
	var tz string
	err := r.pool.QueryRow(ctx, `SELECT timezone FROM profiles WHERE id = $1`, userID).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return "UTC", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying timezone: %w", err)
	}
	return tz, nil
}
