package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmslite/fleetpoll/internal/config"
	"github.com/nmslite/fleetpoll/internal/middleware"
)

// Dependencies wires the router.
type Dependencies struct {
	Auth      Authenticator
	Tokens    middleware.TokenValidator
	Fleet     FleetRunner
	Prober    DeviceProber
	Sectors   SectorSource
	Devices   []string
	CORS      config.CORSConfig
	Readiness map[string]Checker
	Logger    *slog.Logger
}

// NewRouter creates and configures the API router
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	if deps.CORS.Enabled {
		r.Use(middleware.CORS(
			deps.CORS.AllowedOrigins,
			deps.CORS.AllowedMethods,
			deps.CORS.AllowedHeaders,
			deps.CORS.MaxAgeSeconds,
		))
	}

	healthHandler := NewHealthHandler(deps.Readiness)
	authHandler := NewAuthHandler(deps.Auth, logger)
	reportHandler := NewReportHandler(deps.Fleet, deps.Prober, deps.Sectors, deps.Devices, logger)

	// Public routes (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", authHandler.Login)

		// Protected routes (require JWT)
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(deps.Tokens))

			r.Get("/report", reportHandler.Report)
			r.Get("/devices/{ip}", reportHandler.Device)
			r.Get("/sectors", reportHandler.Sectors)
		})
	})

	return r
}
