package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Crypto-Dashboard-Backend/internal/api/middleware"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	datasetService *service.DatasetService,
	indicatorService *service.IndicatorService,
	reconciler *service.Reconciler,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// Operational endpoints hit the upstream API, so they are keyed and rate limited.
	guarded := chi.Chain(
		custommiddleware.APIKey(cfg.Server.APIKey),
		custommiddleware.RateLimit(cfg.RateLimit.RefreshPerMinute, time.Minute),
	)

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService, reconciler)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/reconcile", systemHandler.LastReconcile)
			r.With(guarded...).Post("/reconcile", systemHandler.Reconcile)
		})

		r.Route("/dataset", func(r chi.Router) {
			datasetHandler := handlers.NewDatasetHandler(datasetService)
			r.Get("/", datasetHandler.Datasets)

			r.Route("/{datasetId}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateDatasetIDMiddleware)
				r.Get("/", datasetHandler.Dataset)
				r.With(guarded...).Post("/refresh", datasetHandler.Refresh)
			})
		})

		r.Route("/indicator/{datasetId}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateDatasetIDMiddleware)
			indicatorHandler := handlers.NewIndicatorHandler(indicatorService)
			r.Get("/sma", indicatorHandler.SMA())
			r.Get("/ema", indicatorHandler.EMA())
			r.Get("/rsi", indicatorHandler.RSI())
			r.Get("/regression", indicatorHandler.Regression)
			r.Get("/risk", indicatorHandler.Risk)
			r.Get("/roi-cycle", indicatorHandler.ROICycle)
		})
	})

	return r
}
