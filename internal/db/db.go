// Package db provides PostgreSQL database access for habitual.
//
// Every repository method that touches user data takes the owner's user id
// and filters on it, so one user can never read or change another user's rows.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err was caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Users returns a UserRepository.
func (db *DB) Users() *UserRepository {
	return &UserRepository{pool: db.pool}
}

// Sessions returns a SessionRepository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{pool: db.pool}
}

// Profiles returns a ProfileRepository.
func (db *DB) Profiles() *ProfileRepository {
	return &ProfileRepository{pool: db.pool}
}

// Habits returns a HabitRepository.
func (db *DB) Habits() *HabitRepository {
	return &HabitRepository{pool: db.pool}
}

// Completions returns a CompletionRepository.
func (db *DB) Completions() *CompletionRepository {
	return &CompletionRepository{pool: db.pool}
}

// Streaks returns a StreakRepository.
func (db *DB) Streaks() *StreakRepository {
	return &StreakRepository{pool: db.pool}
}

// Schedule returns a ScheduleRepository.
func (db *DB) Schedule() *ScheduleRepository {
	return &ScheduleRepository{pool: db.pool}
}

// Templates returns a TemplateRepository.
func (db *DB) Templates() *TemplateRepository {
	return &TemplateRepository{pool: db.pool}
}

// Migrations returns a migration Runner for the embedded schema.
func (db *DB) Migrations() *Runner {
	return NewRunner(db.pool, migrationFiles())
}
