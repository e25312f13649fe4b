package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func migrationFiles() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

// Migration is a single schema migration.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Runner applies schema migrations in version order.
type Runner struct {
	pool   *pgxpool.Pool
	fs     fs.FS
	logger *zap.Logger
}

// NewRunner creates a migration runner reading NNN_name.sql files from migrationFS.
func NewRunner(pool *pgxpool.Pool, migrationFS fs.FS) *Runner {
	return &Runner{
		pool:   pool,
		fs:     migrationFS,
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used to report progress.
func (r *Runner) WithLogger(logger *zap.Logger) *Runner {
	r.logger = logger
	return r
}

// ReadMigrations parses the migration files of fsys sorted by version.
func ReadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		// "001_init.sql" -> 1
		prefix, rest, ok := strings.Cut(file.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("invalid migration filename %s (expected NNN_name.sql)", file.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid version number in %s: %w", file.Name(), err)
		}
		if version < 1 {
			return nil, fmt.Errorf("invalid version number in %s: must be at least 1", file.Name())
		}

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// Pending returns the migrations newer than current. It fails when the
// database is ahead of the newest known migration.
func Pending(migrations []Migration, current int) ([]Migration, error) {
	if len(migrations) == 0 {
		return nil, nil
	}
	if latest := migrations[len(migrations)-1].Version; current > latest {
		return nil, fmt.Errorf("database schema version %d is newer than supported version %d", current, latest)
	}

	var pending []Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// CurrentVersion returns the applied schema version, 0 for a fresh database.
func (r *Runner) CurrentVersion(ctx context.Context) (int, error) {
	if _, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("creating schema_version table: %w", err)
	}

	var version int
	err := r.pool.QueryRow(ctx, `SELECT version FROM schema_version`).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying schema version: %w", err)
	}
	return version, nil
}

// Apply runs every pending migration, each in its own transaction, and
// returns how many were applied.
func (r *Runner) Apply(ctx context.Context) (int, error) {
	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}

	migrations, err := ReadMigrations(r.fs)
	if err != nil {
		return 0, err
	}
	pending, err := Pending(migrations, current)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		r.logger.Info("database schema is up to date", zap.Int("version", current))
		return 0, nil
	}

	start := time.Now()
	for i, m := range pending {
		r.logger.Info("applying migration", zap.Int("version", m.Version), zap.String("name", m.Name))
		if err := r.applyOne(ctx, m); err != nil {
			return i, err
		}
	}

	r.logger.Info("migrations applied",
		zap.Int("count", len(pending)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return len(pending), nil
}

func (r *Runner) applyOne(ctx context.Context, m Migration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction for migration %d: %w", m.Version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("applying migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("clearing schema version: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration %d: %w", m.Version, err)
	}
	return nil
}
