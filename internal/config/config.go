package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	validForecastDays = []int{1, 5, 10, 15}
	validHourlyHours  = []int{1, 12, 24, 72, 120}
)

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	AccuWeather struct {
		APIKey       string
		BaseURL      string
		LocationID   string
		ForecastDays int
		HourlyHours  int
		StrictStatus bool
		HTTPTimeout  time.Duration
	}

	Pipeline struct {
		MinTemperatureIndex int
	}

	Refresh struct {
		Timeout time.Duration
		Dedupe  bool
	}

	CircuitBreaker struct {
		Threshold int
		Timeout   time.Duration
	}

	Display struct {
		ClockFormat string
		TimeZone    string
	}

	Storage struct {
		PreferencesDB string
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("FIBER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("FIBER_WRITE_TIMEOUT", "10s"))
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	// AccuWeather configuration
	cfg.AccuWeather.APIKey = getEnv("ACCUWEATHER_API_KEY", "")
	cfg.AccuWeather.BaseURL = getEnv("ACCUWEATHER_BASE_URL", "https://dataservice.accuweather.com")
	cfg.AccuWeather.LocationID = getEnv("ACCUWEATHER_LOCATION_ID", "55489")
	cfg.AccuWeather.ForecastDays = parseInt(getEnv("FORECAST_DAYS", "5"))
	cfg.AccuWeather.HourlyHours = parseInt(getEnv("HOURLY_HOURS", "12"))
	cfg.AccuWeather.StrictStatus = parseBool(getEnv("STRICT_STATUS", "false"))
	cfg.AccuWeather.HTTPTimeout = parseDuration(getEnv("HTTP_TIMEOUT", "60s"))

	cfg.Pipeline.MinTemperatureIndex = parseInt(getEnv("MIN_TEMP_INDEX", "2"))

	cfg.Refresh.Timeout = parseDuration(getEnv("REFRESH_TIMEOUT", "60s"))
	cfg.Refresh.Dedupe = parseBool(getEnv("REFRESH_DEDUPE", "false"))

	// Circuit breaker configuration, 0 disables it
	cfg.CircuitBreaker.Threshold = parseInt(getEnv("CIRCUIT_BREAKER_THRESHOLD", "0"))
	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	cfg.Display.ClockFormat = getEnv("CLOCK_FORMAT", "12h")
	cfg.Display.TimeZone = getEnv("TIMEZONE", "")

	cfg.Storage.PreferencesDB = getEnv("PREFERENCES_DB", "calver.db")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AccuWeather.APIKey) == "" {
		errs = append(errs, errors.New("ACCUWEATHER_API_KEY is required"))
	}
	if c.AccuWeather.LocationID == "" {
		errs = append(errs, errors.New("ACCUWEATHER_LOCATION_ID must not be empty"))
	}
	if !contains(validForecastDays, c.AccuWeather.ForecastDays) {
		errs = append(errs, fmt.Errorf("FORECAST_DAYS must be one of %v, got %d", validForecastDays, c.AccuWeather.ForecastDays))
	}
	if !contains(validHourlyHours, c.AccuWeather.HourlyHours) {
		errs = append(errs, fmt.Errorf("HOURLY_HOURS must be one of %v, got %d", validHourlyHours, c.AccuWeather.HourlyHours))
	}
	if c.Pipeline.MinTemperatureIndex < 0 {
		errs = append(errs, fmt.Errorf("MIN_TEMP_INDEX must not be negative, got %d", c.Pipeline.MinTemperatureIndex))
	}
	if c.CircuitBreaker.Threshold < 0 {
		errs = append(errs, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must not be negative, got %d", c.CircuitBreaker.Threshold))
	}
	switch c.Display.ClockFormat {
	case "12h", "24h":
	default:
		errs = append(errs, fmt.Errorf("CLOCK_FORMAT must be 12h or 24h, got %q", c.Display.ClockFormat))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseBool(value string) bool {
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		zap.L().Warn("Failed to parse bool", zap.String("value", value), zap.Error(err))
		return false
	}
	return boolValue
}

func contains(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
