package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/display"
	"github.com/bobby-s-dev/calver-weather/internal/scheduler"
	"github.com/bobby-s-dev/calver-weather/internal/services"
	"github.com/bobby-s-dev/calver-weather/internal/storage"
	"github.com/bobby-s-dev/calver-weather/pkg/client"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"
)

const (
	currentBody = `[{"EpochTime": 1714593300, "WeatherText": "Partly sunny",
		"Temperature": {"Metric": {"Value": 21.1}, "Imperial": {"Value": 70.0}}}]`

	dailyBody = `{
		"Headline": {"Text": "Pleasant this weekend"},
		"DailyForecasts": [
			{"EpochDate": 1714564800, "Temperature": {"Minimum": {"Value": 10}, "Maximum": {"Value": 20}}, "Day": {"IconPhrase": "Sunny"}, "Night": {"IconPhrase": "Clear"}},
			{"EpochDate": 1714651200, "Temperature": {"Minimum": {"Value": 8}, "Maximum": {"Value": 18}}, "Day": {"IconPhrase": "Cloudy"}, "Night": {"IconPhrase": "Showers"}},
			{"EpochDate": 1714737600, "Temperature": {"Minimum": {"Value": 5}, "Maximum": {"Value": 15}}, "Day": {"IconPhrase": "Rain"}, "Night": {"IconPhrase": "Rain"}}
		]
	}`

	hourlyBody = `[{"EpochDateTime": 1714593600, "IconPhrase": "Sunny", "Temperature": {"Value": 21.7}}]`
)

type testEnv struct {
	app      *fiber.App
	pipeline *services.Pipeline
	prefs    *storage.SQLiteStore
	hits     *int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/currentconditions/"):
			w.Write([]byte(currentBody))
		case strings.HasPrefix(r.URL.Path, "/forecasts/v1/daily/"):
			w.Write([]byte(dailyBody))
		case strings.HasPrefix(r.URL.Path, "/forecasts/v1/hourly/"):
			w.Write([]byte(hourlyBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	weatherClient := client.NewAccuWeatherClient(client.AccuWeatherConfig{
		BaseURL:      upstream.URL,
		APIKey:       "test-key",
		LocationID:   "55489",
		ForecastDays: 5,
		HourlyHours:  12,
	}, client.ClientConfig{Timeout: 5 * time.Second}, logger)

	clock, err := display.NewClock(display.Clock24h, "UTC")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}

	pipeline := services.NewPipeline(weatherClient, services.NewModelStore(logger), services.PipelineConfig{
		MinTemperatureIndex: 2,
		FormatTime:          clock.Short,
	}, logger)

	refresher := scheduler.NewRefresher(pipeline, 5*time.Second, false, logger)
	t.Cleanup(refresher.Stop)

	prefs, err := storage.NewSQLite(filepath.Join(t.TempDir(), "prefs.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { prefs.Close() })

	app := NewApp(5*time.Second, 5*time.Second)
	SetupRoutes(app, NewHandler(pipeline, refresher, prefs, clock, logger), logger)

	return &testEnv{app: app, pipeline: pipeline, prefs: prefs, hits: &hits}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

func TestModelsNotFoundBeforeLoad(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/weather/current", "/api/v1/weather/forecast", "/api/v1/weather/hourly"} {
		if status, _ := env.do(t, http.MethodGet, path, ""); status != fiber.StatusNotFound {
			t.Errorf("%s: expected 404 before load, got %d", path, status)
		}
	}

	status, view := env.do(t, http.MethodGet, "/api/v1/weather", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if view["headline"] != display.NoForecastHeadline || view["temperature"] != "" {
		t.Errorf("expected empty view, got %v", view)
	}
}

func TestRefreshWaitLoadsAllModels(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/v1/refresh?wait=true", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if got := atomic.LoadInt32(env.hits); got != 3 {
		t.Errorf("expected 3 upstream calls, got %d", got)
	}

	status, current := env.do(t, http.MethodGet, "/api/v1/weather/current", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 for current, got %d", status)
	}
	if current["last_updated"] != "19:55" {
		t.Errorf("unexpected last_updated %v", current["last_updated"])
	}

	status, hourly := env.do(t, http.MethodGet, "/api/v1/weather/hourly", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 for hourly, got %d", status)
	}
	if entries, _ := hourly["entries"].([]interface{}); len(entries) != 1 {
		t.Errorf("expected 1 hourly entry, got %v", hourly["entries"])
	}

	_, view := env.do(t, http.MethodGet, "/api/v1/weather?units=imperial", "")
	if view["temperature"] != "70.0°F" || view["high"] != "68.0°F" || view["min"] != "41.0°F" {
		t.Errorf("unexpected imperial view %v", view)
	}
}

func TestRefreshSingleKindAccepted(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/v1/refresh?kind=hourly", "")
	if status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if triggered, _ := body["triggered"].([]interface{}); len(triggered) != 1 || triggered[0] != "hourly" {
		t.Errorf("unexpected triggered %v", body["triggered"])
	}

	if status, _ := env.do(t, http.MethodPost, "/api/v1/refresh?kind=weekly", ""); status != fiber.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", status)
	}
}

func TestUnitPreferenceDrivesView(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/refresh?wait=true", "")

	_, pref := env.do(t, http.MethodGet, "/api/v1/preferences/units", "")
	if pref["metric"] != true {
		t.Errorf("expected metric by default, got %v", pref)
	}

	_, view := env.do(t, http.MethodGet, "/api/v1/weather", "")
	if view["temperature"] != "21.1°C" {
		t.Errorf("expected metric view, got %v", view["temperature"])
	}

	status, _ := env.do(t, http.MethodPut, "/api/v1/preferences/units", `{"metric": false}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	_, view = env.do(t, http.MethodGet, "/api/v1/weather", "")
	if view["temperature"] != "70.0°F" || view["metric"] != false {
		t.Errorf("expected imperial view after toggle, got %v", view)
	}

	if status, _ := env.do(t, http.MethodPut, "/api/v1/preferences/units", `{}`); status != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing metric, got %d", status)
	}
}

func TestInvalidUnitsRejected(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/v1/weather?units=kelvin", "")
	if status != fiber.StatusBadRequest || body["success"] != false {
		t.Errorf("expected 400 error body, got %d %v", status, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/refresh?wait=true&kind=current", "")

	status, health := env.do(t, http.MethodGet, "/api/v1/health", "")
	if status != fiber.StatusOK || health["status"] != "healthy" {
		t.Fatalf("unexpected health %d %v", status, health)
	}
	loaded, _ := health["loaded"].(map[string]interface{})
	if loaded["current"] != true || loaded["forecast"] != false {
		t.Errorf("unexpected loaded map %v", loaded)
	}

	_, metrics := env.do(t, http.MethodGet, "/api/v1/metrics", "")
	m, _ := metrics["metrics"].(map[string]interface{})
	for _, key := range []string{"pipeline", "store", "refresher"} {
		if _, ok := m[key]; !ok {
			t.Errorf("expected %s in metrics", key)
		}
	}
}

func TestUnknownEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if status, body := env.do(t, http.MethodGet, "/api/v1/cities", ""); status != fiber.StatusNotFound || body["path"] != "/api/v1/cities" {
		t.Errorf("expected 404 with path, got %d %v", status, body)
	}
}

func TestNewAppAppliesTimeouts(t *testing.T) {
	app := NewApp(3*time.Second, 4*time.Second)

	cfg := app.Config()
	if cfg.ReadTimeout != 3*time.Second || cfg.WriteTimeout != 4*time.Second {
		t.Errorf("unexpected timeouts %s/%s", cfg.ReadTimeout, cfg.WriteTimeout)
	}
}
