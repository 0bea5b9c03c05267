package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bher20/avfallsor-mqtt/internal/config"
	"github.com/bher20/avfallsor-mqtt/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	var driver, dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.PersistentFlags().StringVar(&driver, "driver", "", "database driver: sqlite or postgres (defaults to $AVFALL_DB_DRIVER)")
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database DSN (defaults to $AVFALL_DB_DSN)")

	sub := func(use, short string, fn func(ctx context.Context, driver, dsn string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.Load()
				d, s := cfg.Storage.Driver, cfg.Storage.DSN
				if driver != "" {
					d = driver
				}
				if dsn != "" {
					s = dsn
				}
				return fn(cmd.Context(), d, s)
			},
		}
	}
	cmd.AddCommand(
		sub("up", "Apply all pending migrations", migrate.Up),
		sub("down", "Roll back the most recent migration", migrate.Down),
		sub("status", "Print migration status", migrate.Status),
	)
	return cmd
}
