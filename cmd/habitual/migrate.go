package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.db.Migrations().WithLogger(a.logger).Apply(ctx)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		return nil
	},
}

var pruneSessionsCmd = &cobra.Command{
	Use:   "prune-sessions",
	Short: "Delete expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.db.Sessions().DeleteExpired(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("pruned sessions", zap.Int64("deleted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired session(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(pruneSessionsCmd)
}
