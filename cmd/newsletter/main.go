// Package main runs the newsletter publisher.
//
// Usage:
//
//	newsletter serve [--with-worker]
//	newsletter worker
//	newsletter migrate up|down|version
//
// Configuration is read from ./configs/config.$APP_ENV.yaml (or --config)
// and environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/Sokol111/newsletter-publisher/pkg/core/config"
	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "newsletter",
		Short:         "Publish newsletter issues and deliver them to subscribers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		_, err := config.LoadDotEnv(flags.envFile)
		return err
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file (default ./configs/config.$APP_ENV.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "File with environment variables, ignored when missing")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newWorkerCmd(flags),
		newMigrateCmd(flags),
	)

	return rootCmd
}
