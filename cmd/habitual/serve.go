package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/justestif/habitual/internal/auth"
	"github.com/justestif/habitual/internal/config"
	"github.com/justestif/habitual/internal/export"
	"github.com/justestif/habitual/internal/habits"
	"github.com/justestif/habitual/internal/profile"
	"github.com/justestif/habitual/internal/schedule"
	"github.com/justestif/habitual/internal/templates"
	"github.com/justestif/habitual/internal/web"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if migrateOnStart {
		if _, err := a.db.Migrations().WithLogger(a.logger).Apply(ctx); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
	}

	templateOpts := []templates.Option{templates.WithLogger(a.logger)}
	if a.cfg.Redis.URL != "" {
		cache, err := templates.NewRedisCache(ctx, a.cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer cache.Close()
		templateOpts = append(templateOpts, templates.WithCache(cache, a.cfg.Redis.TemplateTTL))
	}

	svc := web.Services{
		Auth:      auth.New(a.db, a.cfg.Auth.ResetSecret, authOptions(a.cfg, a.logger)...),
		Habits:    habits.New(a.db, habits.WithLogger(a.logger)),
		Templates: templates.New(a.db, templateOpts...),
		Schedule:  schedule.New(a.db),
		Profiles:  profile.New(a.db),
		Export:    export.New(a.db),
	}

	var sessions web.SessionManager
	switch a.cfg.Server.SessionStore {
	case "memory":
		sessions = web.NewSessionStore(a.cfg.Server.SessionTTL)
	default:
		sessions = web.NewDBSessionStore(a.db.Sessions(), a.cfg.Server.SessionTTL)
	}

	server := web.NewServer(web.Config{
		Addr:           a.cfg.Server.Addr,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		SecureCookies:  a.cfg.Server.SecureCookies,
	}, svc, sessions, a.logger)

	return server.Run(ctx)
}

func authOptions(cfg *config.Config, logger *zap.Logger) []auth.Option {
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithResetTTL(cfg.Auth.ResetTTL),
		auth.WithBaseURL(cfg.Server.BaseURL),
	}

	o := cfg.Auth.OAuth
	if o.Enabled() {
		opts = append(opts, auth.WithOAuth(&oauth2.Config{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  o.AuthURL,
				TokenURL: o.TokenURL,
			},
			RedirectURL: o.RedirectURL,
			Scopes:      o.Scopes,
		}, o.UserInfoURL))
	}
	return opts
}
