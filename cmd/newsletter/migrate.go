package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/app"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence/mongo/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the MongoDB indexes",
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Time limit for the whole operation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(flags, timeout, func(ctx context.Context, m migrations.Migrator) error {
					return m.Up(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(flags, timeout, func(ctx context.Context, m migrations.Migrator) error {
					return m.Down(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(flags, timeout, func(ctx context.Context, m migrations.Migrator) error {
					v, dirty, err := m.Version(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				})
			},
		},
	)

	return cmd
}

func withMigrator(flags *globalFlags, timeout time.Duration, fn func(context.Context, migrations.Migrator) error) error {
	var m migrations.Migrator
	a := fx.New(
		app.MigrationModules(app.WithCoreOptions(coreOptions(flags)...)),
		fx.Populate(&m),
	)
	if err := a.Err(); err != nil {
		return fmt.Errorf("failed to build migration tool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if stopErr := a.Stop(stopCtx); stopErr != nil {
			fmt.Fprintln(os.Stderr, "failed to stop:", stopErr)
		}
	}()

	return fn(ctx, m)
}
