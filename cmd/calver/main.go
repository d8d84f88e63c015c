package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/config"
	"github.com/bobby-s-dev/calver-weather/internal/display"
	"github.com/bobby-s-dev/calver-weather/internal/models"
	"github.com/bobby-s-dev/calver-weather/internal/scheduler"
	"github.com/bobby-s-dev/calver-weather/internal/services"
	"github.com/bobby-s-dev/calver-weather/internal/storage"
	"github.com/bobby-s-dev/calver-weather/pkg/client"
	"go.uber.org/zap"
)

type options struct {
	apiKey  string
	units   string
	save    bool
	timeout time.Duration
	verbose bool
}

var errNoData = errors.New("no weather data could be loaded")

func main() {
	var opts options
	flag.StringVar(&opts.apiKey, "key", "", "AccuWeather API key (overrides ACCUWEATHER_API_KEY env)")
	flag.StringVar(&opts.units, "units", "", "metric or imperial; empty uses the stored preference")
	flag.BoolVar(&opts.save, "save", false, "store -units as the new preference")
	flag.DurationVar(&opts.timeout, "timeout", 90*time.Second, "how long to wait for all three models")
	flag.BoolVar(&opts.verbose, "v", false, "log at debug level")
	flag.Parse()

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level.SetLevel(zap.WarnLevel)
	if opts.verbose {
		zapConfig.Level.SetLevel(zap.DebugLevel)
	}
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)

	err := run(opts, os.Stdout, logger)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run refreshes every model once and prints the view. Deferred cleanup runs
// before main decides the exit code.
func run(opts options, out io.Writer, logger *zap.Logger) error {
	if opts.apiKey != "" {
		os.Setenv("ACCUWEATHER_API_KEY", opts.apiKey)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	clock, err := display.NewClock(cfg.Display.ClockFormat, cfg.Display.TimeZone)
	if err != nil {
		return err
	}

	preferences, err := storage.NewSQLite(cfg.Storage.PreferencesDB, logger)
	if err != nil {
		return err
	}
	defer preferences.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	metric, err := resolveMetric(ctx, preferences, opts.units, opts.save)
	if err != nil {
		return err
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
		Timeout:      cfg.AccuWeather.HTTPTimeout,
		StatusPolicy: statusPolicy,
	}, logger)

	pipeline := services.NewPipeline(weatherClient, services.NewModelStore(logger), services.PipelineConfig{
		MinTemperatureIndex: cfg.Pipeline.MinTemperatureIndex,
		FormatTime:          clock.Short,
	}, logger)

	refresher := scheduler.NewRefresher(pipeline, cfg.Refresh.Timeout, false, logger)
	defer refresher.Stop()

	if err := refresher.ForceRun().Wait(ctx); err != nil {
		logger.Warn("Timed out waiting for refresh, showing what loaded", zap.Error(err))
	}

	snap := pipeline.Store().Snapshot()
	if err := display.WriteText(out, display.Render(snap, metric, clock)); err != nil {
		return err
	}

	for _, kind := range models.AllKinds {
		if snap.Loaded(kind) {
			return nil
		}
	}
	return errNoData
}

// resolveMetric follows the priority chain: flag > stored preference > metric.
func resolveMetric(ctx context.Context, preferences storage.PreferenceStore, flagValue string, save bool) (bool, error) {
	var metric bool
	switch strings.ToLower(flagValue) {
	case "metric", "c":
		metric = true
	case "imperial", "f":
		metric = false
	case "":
		stored, err := preferences.IsMetric(ctx)
		if err != nil {
			zap.L().Warn("Falling back to metric units", zap.Error(err))
			return true, nil
		}
		return stored, nil
	default:
		return false, fmt.Errorf("units must be metric or imperial, got %q", flagValue)
	}

	if save {
		if err := preferences.SetMetric(ctx, metric); err != nil {
			return false, err
		}
	}
	return metric, nil
}
