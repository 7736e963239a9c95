// Package api provides the HTTP API for the status platform.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/notdeathm/notdeath/internal/api/handler"
	"github.com/notdeathm/notdeath/internal/api/middleware"
	"github.com/notdeathm/notdeath/internal/status"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	AllowedOrigin string
	Metrics       *middleware.Metrics

	Store     status.Store
	Refresher handler.Refresher
	Tracker   handler.IssueOpener
	Mailer    handler.Mailer

	ContactRecipient string
	DiscordKey       string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "https://notdeath.vercel.app"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(origin))
	r.Use(middleware.RequireJSON)

	statusHandler := handler.NewStatusHandler(cfg.Store, cfg.Refresher)
	badgeHandler := handler.NewBadgeHandler(cfg.Store)
	reportHandler := handler.NewReportHandler(cfg.Tracker)
	contactHandler := handler.NewContactHandler(cfg.Mailer, cfg.ContactRecipient)
	discordHandler := handler.NewDiscordHandler(cfg.DiscordKey)
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)

	reportRateLimit := middleware.RateLimitByIP(middleware.ReportRateLimit)     // 5 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/api", func(r chi.Router) {
		r.With(standardRateLimit).Get("/status", statusHandler.Get)
		r.With(standardRateLimit).Get("/badge", badgeHandler.Get)
		r.With(reportRateLimit).Post("/report", reportHandler.Create)
		r.With(standardRateLimit).Post("/send", contactHandler.Send)
	})

	r.Get("/.well-known/discord", discordHandler.Get)
	r.Get("/health", opsHandler.HealthCheck)

	return r
}
