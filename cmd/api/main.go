// Package main provides the entrypoint for the status API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/notdeathm/notdeath/internal/api"
	"github.com/notdeathm/notdeath/internal/api/middleware"
	"github.com/notdeathm/notdeath/internal/database"
	"github.com/notdeathm/notdeath/internal/mail/sendgrid"
	"github.com/notdeathm/notdeath/internal/probe"
	"github.com/notdeathm/notdeath/internal/resilience"
	"github.com/notdeathm/notdeath/internal/status"
	"github.com/notdeathm/notdeath/internal/status/postgres"
	"github.com/notdeathm/notdeath/internal/telemetry"
	"github.com/notdeathm/notdeath/internal/tracker/github"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "status-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting status API")

	// Get configuration from environment
	port := getEnvOrDefault("APP_PORT", "8080")
	env := getEnvOrDefault("APP_ENV", "development")
	otlpEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	configPath := getEnvOrDefault("STATUS_CONFIG", "status-config.json")
	dataDir := getEnvOrDefault("STATUS_DATA_DIR", "data")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Load component check configuration
	checkConfig, err := status.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load check config")
	}
	log.Info().
		Int("components", len(checkConfig.Components)).
		Msg("check config loaded")

	// Select the status store: Postgres when DATABASE_URL is set, file-backed
	// otherwise.
	var store status.Store
	if os.Getenv("DATABASE_URL") != "" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate status tables")
		}
		store = pgStore
		log.Info().Msg("postgres status store initialized")
	} else {
		store = status.NewFileStore(dataDir)
		log.Info().Str("dir", dataDir).Msg("file status store initialized")
	}

	// Issue tracker bridge, shared by the report endpoint and the on-demand
	// refresher.
	tracker := github.NewClient(github.ClientConfig{
		Token: checkConfig.GitHubToken,
		Repo:  checkConfig.GitHubRepo,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name: "github",
		}),
	})
	if tracker.Configured() {
		log.Info().Str("repo", checkConfig.GitHubRepo).Msg("issue tracker configured")
	} else {
		log.Warn().Msg("issue tracker not configured, report endpoint will return 501")
	}

	// Mail relay for the contact form.
	mailer := sendgrid.NewClient(sendgrid.ClientConfig{
		APIKey: os.Getenv("SENDGRID_API_KEY"),
		Sender: getEnvOrDefault("MAIL_SENDER", "noreply@notdeath.vercel.app"),
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name: "sendgrid",
		}),
	})
	if !mailer.Configured() {
		log.Warn().Msg("mail provider not configured, contact endpoint will return 501")
	}

	// On-demand refresher behind the status query flag. It re-probes only;
	// transitions and persistence stay with the checker.
	refresher := status.NewService(status.ServiceConfig{
		Config: checkConfig,
		Store:  store,
		Prober: probe.NewChecker(10 * time.Second),
		Logger: log,
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		AllowedOrigin:    os.Getenv("ALLOWED_ORIGIN"),
		Metrics:          metrics,
		Store:            store,
		Refresher:        refresher,
		Tracker:          tracker,
		Mailer:           mailer,
		ContactRecipient: os.Getenv("CONTACT_RECIPIENT"),
		DiscordKey:       os.Getenv("DISCORD_VERIFY_KEY"),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
