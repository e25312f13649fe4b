package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateCompletion is returned when a habit already has a completion
// on the given date.
var ErrDuplicateCompletion = errors.New("completion already exists for date")

// CompletionRepository handles habit completion database operations.
type CompletionRepository struct {
	pool *pgxpool.Pool
}

const completionColumns = `id, habit_id, user_id, completed_date, completed_at, duration, notes, mood_score, metadata, created_at`

// Create inserts a completion. A second completion for the same habit and
// date returns ErrDuplicateCompletion.
func (r *CompletionRepository) Create(ctx context.Context, c *Completion) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO habit_completions (id, habit_id, user_id, completed_date, completed_at, duration, notes, mood_score, metadata, created_at)
		SELECT $1, h.id, h.user_id, $4, NOW(), $5, $6, $7, $8, NOW()
		FROM habits h
		WHERE h.id = $2 AND h.user_id = $3
		RETURNING completed_at, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		c.ID,
		c.HabitID,
		c.UserID,
		c.CompletedDate,
		c.Duration,
		c.Notes,
		c.MoodScore,
		c.Metadata,
	).Scan(&c.CompletedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// The habit does not exist or belongs to someone else.
		return ErrNotFound
	}
	if IsUniqueViolation(err) {
		return ErrDuplicateCompletion
	}
	if err != nil {
		return fmt.Errorf("inserting completion: %w", err)
	}
	return nil
}

// Delete removes the completion of a habit on a date.
func (r *CompletionRepository) Delete(ctx context.Context, userID, habitID uuid.UUID, date Date) error {
	query := `
		DELETE FROM habit_completions
		WHERE habit_id = $1 AND user_id = $2 AND completed_date = $3
	`
	result, err := r.pool.Exec(ctx, query, habitID, userID, date)
	if err != nil {
		return fmt.Errorf("deleting completion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser retrieves a user's completions on or after since, newest
// first. A zero since returns the full history.
func (r *CompletionRepository) ListForUser(ctx context.Context, userID uuid.UUID, since Date) ([]Completion, error) {
	query := `
		SELECT ` + completionColumns + `
		FROM habit_completions
		WHERE user_id = $1 AND ($2::date IS NULL OR completed_date >= $2)
		ORDER BY completed_date DESC, completed_at DESC
	`
	return r.list(ctx, query, userID, since)
}

// ListForHabit retrieves the completions of one habit on or after since,
// newest first.
func (r *CompletionRepository) ListForHabit(ctx context.Context, userID, habitID uuid.UUID, since Date) ([]Completion, error) {
	query := `
		SELECT ` + completionColumns + `
		FROM habit_completions
		WHERE user_id = $1 AND habit_id = $3 AND ($2::date IS NULL OR completed_date >= $2)
		ORDER BY completed_date DESC, completed_at DESC
	`
	return r.list(ctx, query, userID, since, habitID)
}

func (r *CompletionRepository) list(ctx context.Context, query string, args ...any) ([]Completion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	defer rows.Close()

	var completions []Completion
	for rows.Next() {
		var c Completion
		if err := rows.Scan(
			&c.ID,
			&c.HabitID,
			&c.UserID,
			&c.CompletedDate,
			&c.CompletedAt,
			&c.Duration,
			&c.Notes,
			&c.MoodScore,
			&c.Metadata,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning completion: %w", err)
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// CompletedHabitIDs returns the ids of the user's habits completed on date.
func (r *CompletionRepository) CompletedHabitIDs(ctx context.Context, userID uuid.UUID, date Date) (map[uuid.UUID]bool, error) {
	query := `
		SELECT habit_id
		FROM habit_completions
		WHERE user_id = $1 AND completed_date = $2
	`
	rows, err := r.pool.Query(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("querying completed habits: %w", err)
	}
	defer rows.Close()

	done := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning habit id: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}
