package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ACCUWEATHER_API_KEY", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Port != "8080" || cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.AccuWeather.BaseURL != "https://dataservice.accuweather.com" || cfg.AccuWeather.LocationID != "55489" {
		t.Errorf("unexpected accuweather config %+v", cfg.AccuWeather)
	}
	if cfg.AccuWeather.ForecastDays != 5 || cfg.AccuWeather.HourlyHours != 12 {
		t.Errorf("unexpected windows %d/%d", cfg.AccuWeather.ForecastDays, cfg.AccuWeather.HourlyHours)
	}
	if cfg.AccuWeather.StrictStatus {
		t.Error("expected lenient status policy by default")
	}
	if cfg.AccuWeather.HTTPTimeout != 60*time.Second {
		t.Errorf("unexpected http timeout %s", cfg.AccuWeather.HTTPTimeout)
	}
	if cfg.Pipeline.MinTemperatureIndex != 2 {
		t.Errorf("expected min temperature index 2, got %d", cfg.Pipeline.MinTemperatureIndex)
	}
	if cfg.CircuitBreaker.Threshold != 0 || cfg.Refresh.Dedupe {
		t.Error("expected circuit breaker and dedupe to be off by default")
	}
	if cfg.Display.ClockFormat != "12h" || cfg.Storage.PreferencesDB != "calver.db" {
		t.Errorf("unexpected display/storage config %+v %+v", cfg.Display, cfg.Storage)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ACCUWEATHER_API_KEY", "secret")
	t.Setenv("ACCUWEATHER_LOCATION_ID", "349727")
	t.Setenv("FORECAST_DAYS", "10")
	t.Setenv("HOURLY_HOURS", "24")
	t.Setenv("MIN_TEMP_INDEX", "0")
	t.Setenv("STRICT_STATUS", "true")
	t.Setenv("REFRESH_DEDUPE", "1")
	t.Setenv("CIRCUIT_BREAKER_THRESHOLD", "3")
	t.Setenv("CLOCK_FORMAT", "24h")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.AccuWeather.LocationID != "349727" || cfg.AccuWeather.ForecastDays != 10 || cfg.AccuWeather.HourlyHours != 24 {
		t.Errorf("overrides not applied: %+v", cfg.AccuWeather)
	}
	if !cfg.AccuWeather.StrictStatus || !cfg.Refresh.Dedupe {
		t.Error("expected strict status and dedupe to be enabled")
	}
	if cfg.Pipeline.MinTemperatureIndex != 0 || cfg.CircuitBreaker.Threshold != 3 {
		t.Errorf("unexpected pipeline/breaker config %+v %+v", cfg.Pipeline, cfg.CircuitBreaker)
	}
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("ACCUWEATHER_API_KEY", "")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "ACCUWEATHER_API_KEY") {
		t.Errorf("expected missing api key error, got %v", err)
	}
}

func TestValidateRejectsUnsupportedWindows(t *testing.T) {
	t.Setenv("ACCUWEATHER_API_KEY", "secret")
	t.Setenv("FORECAST_DAYS", "7")
	t.Setenv("HOURLY_HOURS", "not-a-number")
	t.Setenv("MIN_TEMP_INDEX", "-1")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"FORECAST_DAYS", "HOURLY_HOURS", "MIN_TEMP_INDEX"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in %q", want, err)
		}
	}
}
