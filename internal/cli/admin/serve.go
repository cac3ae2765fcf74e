package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/api/handlers"
	"github.com/cloo-solutions/testcopilot/internal/database"
	"github.com/cloo-solutions/testcopilot/internal/logging"
	"github.com/cloo-solutions/testcopilot/internal/server"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the testcopilot API server with an embedded worker pool",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides COPILOT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not run jobs in this process")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogFormat, cfg.Debug)
	defer initTelemetry(cfg)()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		if _, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	router := server.NewRouter(server.RouterConfig{
		ProjectHandler:  handlers.NewProjectHandler(a.projects),
		DocumentHandler: handlers.NewDocumentHandler(a.documents, cfg.MaxUploadBytes()),
		SearchHandler:   handlers.NewSearchHandler(a.projects, a.retriever),
		PlanHandler:     handlers.NewPlanHandler(a.plans),
		JobHandler:      handlers.NewJobHandler(a.jobs),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	noWorker, _ := cmd.Flags().GetBool("no-worker")
	workerDone := make(chan struct{})
	worker := a.newWorker()
	if noWorker {
		close(workerDone)
	} else {
		go func() {
			defer close(workerDone)
			worker.Start(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			stop()
			if !noWorker {
				worker.Stop()
			}
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if !noWorker {
		worker.Stop()
	}
	<-workerDone

	slog.Info("server exited")
	return nil
}
