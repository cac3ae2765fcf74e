package admin

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/testcopilot/internal/logging"
	"github.com/spf13/cobra"
)

// WorkerCmd runs the job worker pool without the HTTP API.
func WorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the job worker pool",
		Long:  "Claim and execute ingest and plan-generate jobs until interrupted",
		RunE:  runWorker,
	}
	cmd.Flags().IntP("concurrency", "c", 0, "Concurrent jobs (overrides COPILOT_WORKER_CONCURRENCY)")
	return cmd
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogFormat, cfg.Debug)
	defer initTelemetry(cfg)()

	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.WorkerConcurrency = n
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.newWorker().Start(ctx)
	slog.Info("worker exited")
	return nil
}
