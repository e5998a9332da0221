package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/keyspace-status/internal/server"
)

func newServeCmd() *cobra.Command {
	var simulate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live session status over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("simulate") {
				cfg.Simulate.Enabled = simulate
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("validate config: %w", err)
				}
			}
			app, err := server.Build(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run application: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "drive the session with simulated devices")
	return cmd
}
