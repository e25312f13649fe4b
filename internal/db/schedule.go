package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduleRepository handles schedule event database operations.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

const scheduleColumns = `id, user_id, title, event_type, start_time, end_time, days_of_week, color, is_active, created_at`

// Create inserts a new schedule event.
func (r *ScheduleRepository) Create(ctx context.Context, e *ScheduleEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	query := `
		INSERT INTO schedule_events (id, user_id, title, event_type, start_time, end_time, days_of_week, color, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		e.ID,
		e.UserID,
		e.Title,
		e.EventType,
		e.StartTime,
		e.EndTime,
		e.DaysOfWeek,
		e.Color,
		e.IsActive,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting schedule event: %w", err)
	}
	return nil
}

// Delete removes a schedule event owned by userID.
func (r *ScheduleRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM schedule_events WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting schedule event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive retrieves a user's active events ordered by start time.
func (r *ScheduleRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]ScheduleEvent, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedule_events
		WHERE user_id = $1 AND is_active
		ORDER BY start_time, id
	`
	return r.list(ctx, query, userID)
}

// ListActiveOn retrieves a user's active events that recur on the ISO
// weekday (1=Monday … 7=Sunday), ordered by start time.
func (r *ScheduleRepository) ListActiveOn(ctx context.Context, userID uuid.UUID, isoWeekday int) ([]ScheduleEvent, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedule_events
		WHERE user_id = $1 AND is_active AND $2::int = ANY(days_of_week)
		ORDER BY start_time, id
	`
	return r.list(ctx, query, userID, isoWeekday)
}

func (r *ScheduleRepository) list(ctx context.Context, query string, args ...any) ([]ScheduleEvent, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedule events: %w", err)
	}
	defer rows.Close()

	var events []ScheduleEvent
	for rows.Next() {
		var e ScheduleEvent
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Title,
			&e.EventType,
			&e.StartTime,
			&e.EndTime,
			&e.DaysOfWeek,
			&e.Color,
			&e.IsActive,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning schedule event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
