// Package main provides the entrypoint for the status checker. It runs the
// aggregator on an interval, or once when -once is set (for cron-style
// scheduling).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/notdeathm/notdeath/internal/database"
	"github.com/notdeathm/notdeath/internal/probe"
	"github.com/notdeathm/notdeath/internal/resilience"
	"github.com/notdeathm/notdeath/internal/status"
	"github.com/notdeathm/notdeath/internal/status/postgres"
	"github.com/notdeathm/notdeath/internal/tracker/discord"
	"github.com/notdeathm/notdeath/internal/tracker/github"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	once := flag.Bool("once", false, "run a single aggregator pass and exit")
	flag.Parse()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "status-checker").
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting status checker")

	configPath := getEnvOrDefault("STATUS_CONFIG", "status-config.json")
	dataDir := getEnvOrDefault("STATUS_DATA_DIR", "data")
	interval, err := time.ParseDuration(getEnvOrDefault("CHECK_INTERVAL", "5m"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid CHECK_INTERVAL")
	}

	checkConfig, err := status.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load check config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store status.Store
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := database.Connect(ctx, database.ConfigFromEnv())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate status tables")
		}
		store = pgStore
	} else {
		store = status.NewFileStore(dataDir)
	}

	tracker := github.NewClient(github.ClientConfig{
		Token: checkConfig.GitHubToken,
		Repo:  checkConfig.GitHubRepo,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name: "github",
		}),
	})

	var notifier status.Notifier
	if webhookURL := os.Getenv("DISCORD_WEBHOOK_URL"); webhookURL != "" {
		notifier = discord.NewWebhook(webhookURL)
		log.Info().Msg("webhook notifier configured")
	}

	service := status.NewService(status.ServiceConfig{
		Config:    checkConfig,
		Store:     store,
		Prober:    probe.NewChecker(10 * time.Second),
		Inspector: probe.TLSExpiry,
		Tracker:   tracker,
		Notifier:  notifier,
		Logger:    log,
	})

	if *once {
		if _, err := service.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("aggregator run failed")
		}
		return
	}

	run := func() {
		if _, err := service.Run(ctx); err != nil {
			log.Error().Err(err).Msg("aggregator run failed")
		}
	}
	run()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("checker stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
