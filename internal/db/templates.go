package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TemplateRepository reads the shared habit template catalog.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

const templateColumns = `id, name, description, category, icon, color, habits, created_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Category,
		&t.Icon,
		&t.Color,
		&t.Habits,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List retrieves all templates in creation order.
func (r *TemplateRepository) List(ctx context.Context) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM habit_templates ORDER BY created_at, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// Get retrieves a template by ID.
func (r *TemplateRepository) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	query := `SELECT ` + templateColumns + ` FROM habit_templates WHERE id = $1`
	t, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying template: %w", err)
	}
	return t, nil
}
