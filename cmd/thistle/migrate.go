package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/startup"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			a := &app{cfg: cfg, logger: logger, startup: startup.NewStartup(logger, cfg.StartupMaxAttempts)}
			a.startup.Add(startup.Func{
				Name: "postgres",
				StartFn: func(ctx context.Context) (err error) {
					a.db, err = database.Connect(ctx, database.Config{
						DSN:          cfg.DatabaseDSN(),
						MaxOpenConns: 1,
						MaxIdleConns: 1,
					}, logger)
					return err
				},
				StopFn: func(ctx context.Context) error {
					return a.db.Close()
				},
			})
			if err := a.start(cmd.Context()); err != nil {
				return err
			}
			defer a.stop()

			return runMigrations(a)
		},
	}
}
