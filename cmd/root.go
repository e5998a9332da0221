// Package cmd wires the keyspace-status command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/keyspace-status/internal/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyspace-status",
		Short: "Runtime status and progress accounting for multi-device keyspace searches.",
		Long: `keyspace-status tracks the progress of a keyspace search spread over several
compute devices: candidates processed, per-device throughput, recoveries per
time window, projected completion and hardware health. It serves the live
status over HTTP and fans snapshots out to logs, Prometheus, Postgres,
Pub/Sub and report archives.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, env prefix KSSTATUS_)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
