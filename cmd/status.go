package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/config"
	"github.com/JakeFAU/keyspace-status/internal/server"
)

func newStatusCmd() *cobra.Command {
	var (
		duration time.Duration
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run a simulated session briefly and print its status block",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), &cfg, duration, asJSON)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "how long to simulate before reporting")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func runStatus(ctx context.Context, out io.Writer, cfg *config.Config, d time.Duration, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg.Simulate.Enabled = true
	if cfg.Simulate.BatchesPerSecond <= 0 {
		cfg.Simulate.BatchesPerSecond = 20
	}
	if cfg.Simulate.BatchSize == 0 {
		cfg.Simulate.BatchSize = 1000
	}
	logger := zap.NewNop()
	sess, err := server.NewSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Destroy()

	runCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- server.NewEngine(cfg, sess, logger).Run(runCtx) }()

	// Snapshot while the engine is still live so the current rates are valid.
	var runErr error
	finished := false
	select {
	case <-runCtx.Done():
	case runErr = <-done:
		finished = true
	}
	snap := sess.Snapshot(ctx, true)
	cancel()
	if !finished {
		runErr = <-done
	}
	if runErr != nil && !errors.Is(runErr, context.DeadlineExceeded) && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("simulate: %w", runErr)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(out, snap.Text()); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}
