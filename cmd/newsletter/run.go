package main

import (
	"fmt"

	"github.com/Sokol111/newsletter-publisher/internal/app"
	"github.com/Sokol111/newsletter-publisher/internal/email"
	"github.com/Sokol111/newsletter-publisher/pkg/core"
	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the publish API",
		Long: `Serve POST /admin/newsletters and GET /admin/newsletters/{issueId}.

With --with-worker the delivery worker runs in the same process, which is
convenient for standalone setups.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []app.Option{app.WithAPI()}
			if withWorker {
				workerOpts, err := deliveryOptions(flags)
				if err != nil {
					return err
				}
				opts = append(opts, workerOpts...)
			}
			return run(flags, opts...)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "Also run the delivery worker")

	return cmd
}

func newWorkerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued newsletter issues",
		Long: `Claim outbox tasks and send each issue to its recipient.

Any number of worker processes may run against the same database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := deliveryOptions(flags)
			if err != nil {
				return err
			}
			return run(flags, opts...)
		},
	}
}

// deliveryOptions adds the Kafka producer only when the email transport needs it.
func deliveryOptions(flags *globalFlags) ([]app.Option, error) {
	var viperOpts []config.ViperOption
	if flags.configPath != "" {
		viperOpts = append(viperOpts, config.WithConfigPath(flags.configPath))
	}
	v, err := config.Load(viperOpts...)
	if err != nil {
		return nil, err
	}

	opts := []app.Option{app.WithDeliveryWorker()}
	if email.Transport(v.GetString("email.transport")) == email.TransportKafka {
		opts = append(opts, app.WithKafka())
	}
	return opts, nil
}

// coreOptions skips the core .env loader: the root command has already
// loaded --env-file.
func coreOptions(flags *globalFlags) []core.Option {
	opts := []core.Option{core.WithoutEnvFile()}
	if flags.configPath != "" {
		opts = append(opts, core.WithConfigPath(flags.configPath))
	}
	return opts
}

// run blocks until SIGINT or SIGTERM.
func run(flags *globalFlags, opts ...app.Option) error {
	a := fx.New(appModules(flags, opts...))
	if err := a.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	a.Run()
	return nil
}

func appModules(flags *globalFlags, opts ...app.Option) fx.Option {
	return app.Modules(append(opts, app.WithCoreOptions(coreOptions(flags)...))...)
}
