// Package main is the entry point for the potager API server.
//
// It loads configuration, connects the PostgreSQL pool, wires the weather
// and geocoding clients, the plant catalog, the read-only advisor used by
// the status endpoint, and the six v1 handler groups, then serves HTTP
// with graceful shutdown on SIGINT/SIGTERM.
//
// The API runs as a long-lived HTTP server; the scheduled work lives in
// cmd/advisor and cmd/report-worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"potager/internal/advisor"
	"potager/internal/api/handlers"
	"potager/internal/catalog"
	"potager/internal/config"
	"potager/internal/core"
	"potager/internal/db"
	"potager/internal/external"
	"potager/internal/report"
	"potager/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("potager API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}

	gardenRepo := db.NewGardenRepository(pool)
	journalRepo := db.NewJournalRepository(pool)
	adviceRepo := db.NewAdviceRepository(pool)
	archiveRepo := db.NewWeatherArchiveRepository(pool)

	ref, err := catalog.New(cfg.Catalog.OverridePath)
	if err != nil {
		pool.Close()
		return fmt.Errorf("loading plant catalog: %w", err)
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		pool.Close()
		return fmt.Errorf("parsing report template: %w", err)
	}

	// Outbound HTTP goes through the resilient client: circuit breaker per
	// provider plus retry with backoff.
	httpClient := &http.Client{Timeout: cfg.Weather.Timeout}
	userAgent := "potager/" + cfg.Build.Version
	weatherClient := weather.NewOpenMeteoClient(
		external.NewBaseClient(httpClient, "open-meteo-forecast", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.ForecastURL,
		logger,
	)
	geocoder := weather.NewGeocodingClient(
		external.NewBaseClient(httpClient, "open-meteo-geocoding", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.GeocodingURL,
		logger,
	)
	codec := weather.NewCodec()

	// The status endpoint computes advice on demand and writes nothing, so
	// the advisor here gets only the read-side dependencies. Locks,
	// persistence and report delivery belong to cmd/advisor.
	preview := advisor.New(advisor.Config{
		Garden:       gardenRepo,
		Journal:      journalRepo,
		Weather:      weatherClient,
		Geocoder:     geocoder,
		Ref:          ref,
		Codec:        codec,
		Logger:       logger,
		LookbackDays: cfg.Advisor.LookbackDays,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.RegisterShutdown(func(context.Context) error {
		pool.Close()
		return nil
	})

	if cfg.Observability.EnableMetrics && cfg.Environment != "local" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Warn("failed to load AWS SDK config, API metrics disabled", "error", err)
		} else {
			metrics := external.NewAPIMetrics(cloudwatch.NewFromConfig(awsCfg), logger)
			srv.Metrics = metrics
			srv.RegisterShutdown(func(context.Context) error {
				metrics.Flush()
				return nil
			})
		}
	}

	srv.HealthProbes = []core.HealthProbe{
		core.NewProbe("database", pool.Ping),
	}

	gardenHandler := handlers.NewGardenHandler(gardenRepo, ref, preview, srv.Validator, logger)
	journalHandler := handlers.NewJournalHandler(journalRepo, gardenRepo, srv.Validator, logger)
	weatherHandler := handlers.NewWeatherHandler(gardenRepo, weatherClient, logger)
	catalogHandler := handlers.NewCatalogHandler(ref, logger)
	adviceHandler := handlers.NewAdviceHandler(adviceRepo, archiveRepo, journalRepo, gardenRepo, ref, renderer, codec, logger)
	geocodeHandler := handlers.NewGeocodeHandler(geocoder, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		gardenHandler.RegisterRoutes,
		journalHandler.RegisterRoutes,
		weatherHandler.RegisterRoutes,
		catalogHandler.RegisterRoutes,
		adviceHandler.RegisterRoutes,
		geocodeHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// secretProvider returns the SSM provider for deployed environments. In
// local mode LoadConfig skips SSM resolution, so no provider is needed.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	return config.NewSSMProvider(os.Getenv("AWS_REGION"))
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Release server resources (DB pool, metric flush).
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
