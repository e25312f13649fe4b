package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StreakRepository handles the per-user streak summary.
type StreakRepository struct {
	pool *pgxpool.Pool
}

const selectStreakQuery = `
	SELECT user_id, current_streak, longest_streak, last_activity_date, total_points, updated_at
	FROM user_streaks
	WHERE user_id = $1
`

func scanStreak(row pgx.Row) (*StreakRecord, error) {
	var s StreakRecord
	err := row.Scan(
		&s.UserID,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.LastActivity,
		&s.TotalPoints,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get retrieves the streak record of a user.
func (r *StreakRepository) Get(ctx context.Context, userID uuid.UUID) (*StreakRecord, error) {
	s, err := scanStreak(r.pool.QueryRow(ctx, selectStreakQuery, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying streak: %w", err)
	}
	return s, nil
}

// Update locks the user's streak record, passes it to fn and stores the
// result. A user without a record starts from a zero record.
func (r *StreakRepository) Update(ctx context.Context, userID uuid.UUID, fn func(*StreakRecord) error) (*StreakRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Create the zero row first so concurrent first updates serialize on its lock.
	if _, err := tx.Exec(ctx, `INSERT INTO user_streaks (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("creating streak: %w", err)
	}

	s, err := scanStreak(tx.QueryRow(ctx, selectStreakQuery+` FOR UPDATE`, userID))
	if err != nil {
		return nil, fmt.Errorf("querying streak: %w", err)
	}

	if err := fn(s); err != nil {
		return nil, err
	}

	query := `
		UPDATE user_streaks SET
			current_streak = $2,
			longest_streak = $3,
			last_activity_date = $4,
			total_points = $5,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, query,
		userID,
		s.CurrentStreak,
		s.LongestStreak,
		s.LastActivity,
		s.TotalPoints,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating streak: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return s, nil
}
