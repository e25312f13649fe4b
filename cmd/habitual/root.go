package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/habitual/internal/config"
	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "habitual",
	Short:         "habitual tracks daily habits, streaks and schedules",
	Long:          "habitual serves a JSON API for tracking habits, completions, streaks, templates and a weekly schedule.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (defaults to $HABITUAL_CONFIG)")
}

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *db.DB
}

// setup loads configuration, then opens the logger and database.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &app{cfg: cfg, logger: logger, db: database}, nil
}

func (a *app) close() {
	a.db.Close()
	_ = a.logger.Sync()
}
