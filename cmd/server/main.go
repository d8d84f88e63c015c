package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/api"
	"github.com/bobby-s-dev/calver-weather/internal/config"
	"github.com/bobby-s-dev/calver-weather/internal/display"
	"github.com/bobby-s-dev/calver-weather/internal/models"
	"github.com/bobby-s-dev/calver-weather/internal/scheduler"
	"github.com/bobby-s-dev/calver-weather/internal/services"
	"github.com/bobby-s-dev/calver-weather/internal/storage"
	"github.com/bobby-s-dev/calver-weather/pkg/client"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Initialize logger
	zapConfig := zap.NewProductionConfig()
	logger, _ := zapConfig.Build()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting calver weather service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if level, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		zapConfig.Level.SetLevel(level)
	} else {
		logger.Warn("Unknown log level, keeping info", zap.String("level", cfg.Server.LogLevel))
	}

	clock, err := display.NewClock(cfg.Display.ClockFormat, cfg.Display.TimeZone)
	if err != nil {
		logger.Fatal("Failed to initialize clock", zap.Error(err))
	}

	statusPolicy := client.StatusLenient
	if cfg.AccuWeather.StrictStatus {
		statusPolicy = client.StatusStrict
	}

	weatherClient := client.NewAccuWeatherClient(client.AccuWeatherConfig{
		BaseURL:      cfg.AccuWeather.BaseURL,
		APIKey:       cfg.AccuWeather.APIKey,
		LocationID:   cfg.AccuWeather.LocationID,
		ForecastDays: cfg.AccuWeather.ForecastDays,
		HourlyHours:  cfg.AccuWeather.HourlyHours,
	}, client.ClientConfig{
		Timeout:        cfg.AccuWeather.HTTPTimeout,
		StatusPolicy:   statusPolicy,
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
	}, logger)

	store := services.NewModelStore(logger)
	unsubscribe := store.Subscribe(func(kind models.Kind) {
		logger.Debug("Model replaced", zap.String("kind", string(kind)))
	})
	defer unsubscribe()

	pipeline := services.NewPipeline(weatherClient, store, services.PipelineConfig{
		MinTemperatureIndex: cfg.Pipeline.MinTemperatureIndex,
		FormatTime:          clock.Short,
	}, logger)

	refresher := scheduler.NewRefresher(pipeline, cfg.Refresh.Timeout, cfg.Refresh.Dedupe, logger)

	preferences, err := storage.NewSQLite(cfg.Storage.PreferencesDB, logger)
	if err != nil {
		logger.Fatal("Failed to open preferences store", zap.Error(err))
	}
	defer preferences.Close()

	// Create Fiber app
	app := api.NewApp(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	// Setup handlers and routes
	handler := api.NewHandler(pipeline, refresher, preferences, clock, logger)
	api.SetupRoutes(app, handler, logger)

	// Initial load, the same as a manual refresh of every kind
	refresher.ForceRun()

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	refresher.Stop()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
