package main

import (
	"context"
	"encoding/json"
	"fmt"
	"logistics-route-service/internal/app"
	"logistics-route-service/internal/config"
	"logistics-route-service/internal/platform/logger"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Attach freight lines to purchase orders for routed loads.",
		Long: `Runs the purchase-order reconciler against the configured registries.
With --once a single pass is made and its report printed as JSON; otherwise
passes repeat every --interval until the process is interrupted.`,
		SilenceUsage: true,
		RunE:         runReconcile,
	}
	cmd.Flags().Bool("once", false, "Run a single pass and exit")
	cmd.Flags().Duration("interval", 0, "Time between passes (defaults to RECONCILE_INTERVAL)")
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	once, _ := cmd.Flags().GetBool("once")
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.ReconcileInterval = interval
	}

	log := logger.Init(cfg.LogMode)
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() { _ = a.Close() }()

	if once {
		report, err := a.Reconciler.Run(ctx)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	log.Info("reconciler starting", zap.Duration("interval", cfg.ReconcileInterval))
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.Scheduler.Stop(stopCtx)
}
