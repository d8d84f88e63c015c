package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/storage"
	"go.uber.org/zap/zaptest"
)

func setupEnv(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	dbPath := filepath.Join(t.TempDir(), "prefs.db")
	t.Setenv("ACCUWEATHER_API_KEY", "test-key")
	t.Setenv("ACCUWEATHER_BASE_URL", upstream.URL)
	t.Setenv("PREFERENCES_DB", dbPath)
	t.Setenv("CLOCK_FORMAT", "24h")
	t.Setenv("TIMEZONE", "UTC")
	return dbPath
}

func accuWeather(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/currentconditions/"):
		w.Write([]byte(`[{"EpochTime": 1714593300, "WeatherText": "Partly sunny",
			"Temperature": {"Metric": {"Value": 21.1}, "Imperial": {"Value": 70.0}}}]`))
	case strings.HasPrefix(r.URL.Path, "/forecasts/v1/daily/"):
		w.Write([]byte(`{"Headline": {"Text": "Pleasant"}, "DailyForecasts": [
			{"EpochDate": 1714564800, "Temperature": {"Minimum": {"Value": 10}, "Maximum": {"Value": 20}}, "Day": {"IconPhrase": "Sunny"}, "Night": {"IconPhrase": "Clear"}}]}`))
	case strings.HasPrefix(r.URL.Path, "/forecasts/v1/hourly/"):
		w.Write([]byte(`[]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func readMetric(t *testing.T, dbPath string) bool {
	t.Helper()
	prefs, err := storage.NewSQLite(dbPath, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("reopen preferences: %v", err)
	}
	defer prefs.Close()

	metric, err := prefs.IsMetric(context.Background())
	if err != nil {
		t.Fatalf("IsMetric: %v", err)
	}
	return metric
}

func TestRunPrintsViewAndSavesUnits(t *testing.T) {
	dbPath := setupEnv(t, accuWeather)

	var out strings.Builder
	err := run(options{units: "imperial", save: true, timeout: 5 * time.Second}, &out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, want := range []string{"70.0°F", "Partly sunny", "High 68.0°F", "Pleasant", "Last API update 19:55"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}

	if readMetric(t, dbPath) {
		t.Error("expected imperial preference to be stored")
	}
}

func TestRunReportsNoDataAfterCleanup(t *testing.T) {
	dbPath := setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var out strings.Builder
	err := run(options{timeout: 5 * time.Second}, &out, zaptest.NewLogger(t))
	if !errors.Is(err, errNoData) {
		t.Fatalf("expected errNoData, got %v", err)
	}
	if !strings.Contains(out.String(), "No forecast available") {
		t.Errorf("expected placeholder view, got:\n%s", out.String())
	}

	if !readMetric(t, dbPath) {
		t.Error("expected default metric preference")
	}
}

func TestRunRejectsUnknownUnits(t *testing.T) {
	setupEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream request %s", r.URL.Path)
	})

	var out strings.Builder
	if err := run(options{units: "kelvin", timeout: time.Second}, &out, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error for unknown units")
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}
