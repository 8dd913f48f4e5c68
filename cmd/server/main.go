package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/config"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/database"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/registry"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/repository"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/upstream"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	log := logging.With("main")
	log.Info().Str("version", version.Version).Msg("starting crypto dashboard backend")

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Str("path", cfg.Database.Path).Msg("connected to database")

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset registry")
	}
	log.Info().Int("datasets", len(reg.IDs())).Strs("families", reg.Families()).Msg("dataset registry loaded")

	client := upstream.NewDataClient(upstream.Options{
		BaseURL:      cfg.DataAPI.BaseURL,
		Token:        cfg.DataAPI.Token,
		MetadataPath: cfg.DataAPI.MetadataPath,
		Timeout:      cfg.DataAPI.Timeout,
	})

	// Create repositories
	cacheRepo := repository.NewCacheRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Create services
	systemService := service.NewSystemService(db, client)
	datasetService := service.NewDatasetService(reg, client, cacheRepo, cfg.Cache.TTL)
	indicatorService := service.NewIndicatorService(datasetService, snapshotRepo, service.IndicatorOptions{})
	datasetService.OnRefresh(indicatorService.InvalidateSnapshots)
	reconciler := service.NewReconciler(client, reg, datasetService, cfg.Reconcile.Concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := service.NewScheduler(ctx, reconciler, 10*time.Minute)
	if err := scheduler.Register(cfg.Reconcile.Schedule); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Reconcile.Schedule).Msg("invalid reconcile schedule")
	}

	// Warm from cache or network, then reconcile against upstream markers.
	go func() {
		datasetService.Warm(ctx, cfg.Reconcile.Concurrency)
		if ctx.Err() != nil {
			return
		}
		if cfg.Reconcile.OnStart {
			scheduler.RunNow()
		}
		scheduler.Start()
	}()

	// Create router
	router := api.NewRouter(systemService, datasetService, indicatorService, reconciler, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.DataAPI.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	log.Info().Msg("shutting down server...")
	scheduler.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited")
}
