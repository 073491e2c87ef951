package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/api/handlers"
	"github.com/cjgv1809/Chat-with-PDF/internal/config"
	"github.com/cjgv1809/Chat-with-PDF/internal/database"
	"github.com/cjgv1809/Chat-with-PDF/internal/jobs"
	"github.com/cjgv1809/Chat-with-PDF/internal/server"
	"github.com/cjgv1809/Chat-with-PDF/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docchat API server and the background ingestion worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not run the ingestion worker in this process")
	cmd.Flags().String("migrations", defaultMigrationsPath, "Directory holding the SQL migrations")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		migrationsPath, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, migrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var ingestionWorker *jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		processor := jobs.NewIngestionWorker(a.jobRepo, a.documents)
		ingestionWorker = jobs.NewWorker("ingestion", processor, cfg.IngestPollInterval)
		go ingestionWorker.Start(ctx)
	}

	if !cfg.HasWebhookSecret() {
		log.Println("DOCCHAT_WEBHOOK_SECRET not set: deletion webhook disabled")
	}

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(a.documents),
		ChatHandler:     handlers.NewChatHandler(a.chat),
		WebhookHandler:  handlers.NewWebhookHandler(a.documents),
		WebhookSecret:   cfg.WebhookSecret,
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestionWorker != nil {
		ingestionWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
