package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HabitRepository handles habit database operations.
type HabitRepository struct {
	pool *pgxpool.Pool
}

const habitColumns = `id, user_id, name, description, frequency_type, frequency_config,
	color, icon, target_duration, reminder_time, timezone, archived_at, created_at, updated_at`

func scanHabit(row pgx.Row) (*Habit, error) {
	var h Habit
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Description,
		&h.FrequencyType,
		&h.FrequencyConfig,
		&h.Color,
		&h.Icon,
		&h.TargetDuration,
		&h.ReminderTimes,
		&h.Timezone,
		&h.ArchivedAt,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const insertHabitQuery = `
	INSERT INTO habits (id, user_id, name, description, frequency_type, frequency_config,
		color, icon, target_duration, reminder_time, timezone, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	RETURNING created_at, updated_at
`

func insertHabitArgs(h *Habit) []any {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.ReminderTimes == nil {
		h.ReminderTimes = []string{}
	}
	return []any{
		h.ID,
		h.UserID,
		h.Name,
		h.Description,
		h.FrequencyType,
		h.FrequencyConfig,
		h.Color,
		h.Icon,
		h.TargetDuration,
		h.ReminderTimes,
		h.Timezone,
	}
}

// Create inserts a new habit.
func (r *HabitRepository) Create(ctx context.Context, h *Habit) error {
	err := r.pool.QueryRow(ctx, insertHabitQuery, insertHabitArgs(h)...).Scan(&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting habit: %w", err)
	}
	return nil
}

// CreateBatch inserts all habits in a single transaction. Either every habit
// is stored or none is.
func (r *HabitRepository) CreateBatch(ctx context.Context, habits []*Habit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, h := range habits {
		if err := tx.QueryRow(ctx, insertHabitQuery, insertHabitArgs(h)...).Scan(&h.CreatedAt, &h.UpdatedAt); err != nil {
			return fmt.Errorf("inserting habit %q: %w", h.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a habit owned by userID.
func (r *HabitRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND user_id = $2`
	h, err := scanHabit(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying habit: %w", err)
	}
	return h, nil
}

// List retrieves a user's habits, newest first. Archived habits are only
// included when includeArchived is set.
func (r *HabitRepository) List(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE user_id = $1 AND ($2 OR archived_at IS NULL)
		ORDER BY created_at DESC, id
	`
	rows, err := r.pool.Query(ctx, query, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("querying habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// Update overwrites the editable fields of a habit owned by h.UserID.
func (r *HabitRepository) Update(ctx context.Context, h *Habit) error {
	if h.ReminderTimes == nil {
		h.ReminderTimes = []string{}
	}
	query := `
		UPDATE habits SET
			name = $3,
			description = $4,
			frequency_type = $5,
			frequency_config = $6,
			color = $7,
			icon = $8,
			target_duration = $9,
			reminder_time = $10,
			timezone = $11,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		h.ID,
		h.UserID,
		h.Name,
		h.Description,
		h.FrequencyType,
		h.FrequencyConfig,
		h.Color,
		h.Icon,
		h.TargetDuration,
		h.ReminderTimes,
		h.Timezone,
	).Scan(&h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating habit: %w", err)
	}
	return nil
}

// Delete removes a habit and, by cascade, its completions.
func (r *HabitRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive marks a habit as archived. Archiving twice keeps the first timestamp.
func (r *HabitRepository) Archive(ctx context.Context, userID, id uuid.UUID) error {
	query := `
		UPDATE habits
		SET archived_at = COALESCE(archived_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("archiving habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
