package client

import (
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/calver-weather/internal/models"
)

// Upstream field names are PascalCase and matched exactly.
var schemaJSON = jsoniter.Config{CaseSensitive: true}.Froze()

type AccuWeatherClient struct {
	*BaseClient
	baseURL      string
	apiKey       string
	locationID   string
	forecastDays int
	hourlyHours  int
}

type AccuWeatherConfig struct {
	BaseURL      string
	APIKey       string
	LocationID   string
	ForecastDays int
	HourlyHours  int
}

func NewAccuWeatherClient(cfg AccuWeatherConfig, clientConfig ClientConfig, logger *zap.Logger) *AccuWeatherClient {
	baseClient := NewBaseClient("accuweather", clientConfig, logger)
	return &AccuWeatherClient{
		BaseClient:   baseClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		locationID:   cfg.LocationID,
		forecastDays: cfg.ForecastDays,
		hourlyHours:  cfg.HourlyHours,
	}
}

func (c *AccuWeatherClient) CurrentConditionsURL() string {
	return fmt.Sprintf("%s/currentconditions/v1/%s?apikey=%s",
		c.baseURL, url.PathEscape(c.locationID), url.QueryEscape(c.apiKey))
}

func (c *AccuWeatherClient) DailyForecastURL() string {
	return fmt.Sprintf("%s/forecasts/v1/daily/%dday/%s?apikey=%s&metric=true",
		c.baseURL, c.forecastDays, url.PathEscape(c.locationID), url.QueryEscape(c.apiKey))
}

func (c *AccuWeatherClient) HourlyForecastURL() string {
	return fmt.Sprintf("%s/forecasts/v1/hourly/%dhour/%s?apikey=%s&details=true&metric=true",
		c.baseURL, c.hourlyHours, url.PathEscape(c.locationID), url.QueryEscape(c.apiKey))
}

type valueField struct {
	Value *jsonNumber `json:"Value"`
}

// jsonNumber is a decimal that only accepts a JSON number token. The
// decimal package on its own also takes quoted strings.
type jsonNumber struct {
	decimal.Decimal
}

func (n *jsonNumber) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || (data[0] != '-' && (data[0] < '0' || data[0] > '9')) {
		return fmt.Errorf("expected a number, got %s", data)
	}
	return n.Decimal.UnmarshalJSON(data)
}

type phraseField struct {
	IconPhrase *string `json:"IconPhrase"`
}

// CurrentConditionsResponse is the body of /currentconditions/v1/{location}.
type CurrentConditionsResponse []CurrentConditionsItem

type CurrentConditionsItem struct {
	Temperature *struct {
		Metric   *valueField `json:"Metric"`
		Imperial *valueField `json:"Imperial"`
	} `json:"Temperature"`
	WeatherText *string `json:"WeatherText"`
	EpochTime   *int64  `json:"EpochTime"`
}

// DailyForecastResponse is the body of /forecasts/v1/daily/{N}day/{location}.
type DailyForecastResponse struct {
	Headline *struct {
		Text *string `json:"Text"`
	} `json:"Headline"`
	DailyForecasts []DailyForecastItem `json:"DailyForecasts"`
}

type DailyForecastItem struct {
	EpochDate   *int64 `json:"EpochDate"`
	Temperature *struct {
		Minimum *valueField `json:"Minimum"`
		Maximum *valueField `json:"Maximum"`
	} `json:"Temperature"`
	Day   *phraseField `json:"Day"`
	Night *phraseField `json:"Night"`
}

// HourlyForecastResponse is the body of /forecasts/v1/hourly/{H}hour/{location}.
type HourlyForecastResponse []HourlyForecastItem

type HourlyForecastItem struct {
	EpochDateTime *int64      `json:"EpochDateTime"`
	Temperature   *valueField `json:"Temperature"`
	IconPhrase    *string     `json:"IconPhrase"`
}

// APIError is the body AccuWeather sends with most non-2xx responses.
type APIError struct {
	Code      string `json:"Code"`
	Message   string `json:"Message"`
	Reference string `json:"Reference"`
}

func DecodeCurrentConditions(data []byte) (models.CurrentConditions, error) {
	var resp CurrentConditionsResponse
	if err := unmarshalSchema(data, &resp, "current conditions"); err != nil {
		return models.CurrentConditions{}, err
	}
	if len(resp) == 0 {
		return models.CurrentConditions{}, schemaMismatch("current conditions: empty response")
	}

	item := resp[0]
	switch {
	case item.Temperature == nil:
		return models.CurrentConditions{}, missing("[0].Temperature")
	case item.Temperature.Metric == nil || item.Temperature.Metric.Value == nil:
		return models.CurrentConditions{}, missing("[0].Temperature.Metric.Value")
	case item.Temperature.Imperial == nil || item.Temperature.Imperial.Value == nil:
		return models.CurrentConditions{}, missing("[0].Temperature.Imperial.Value")
	case item.WeatherText == nil:
		return models.CurrentConditions{}, missing("[0].WeatherText")
	case item.EpochTime == nil:
		return models.CurrentConditions{}, missing("[0].EpochTime")
	}

	return models.CurrentConditions{
		TemperatureCelsius:     item.Temperature.Metric.Value.Decimal,
		TemperatureFahrenheit:  item.Temperature.Imperial.Value.Decimal,
		ConditionText:          *item.WeatherText,
		ObservedAtEpochSeconds: *item.EpochTime,
	}, nil
}

func DecodeDailyForecast(data []byte) (models.ForecastSummary, error) {
	var resp DailyForecastResponse
	if err := unmarshalSchema(data, &resp, "daily forecast"); err != nil {
		return models.ForecastSummary{}, err
	}
	if resp.Headline == nil || resp.Headline.Text == nil {
		return models.ForecastSummary{}, missing("Headline.Text")
	}
	if resp.DailyForecasts == nil {
		return models.ForecastSummary{}, missing("DailyForecasts")
	}

	summary := models.ForecastSummary{
		HeadlineText: *resp.Headline.Text,
		DailyEntries: make([]models.DailyForecastEntry, 0, len(resp.DailyForecasts)),
	}

	for i, day := range resp.DailyForecasts {
		path := fmt.Sprintf("DailyForecasts[%d]", i)
		switch {
		case day.EpochDate == nil:
			return models.ForecastSummary{}, missing(path + ".EpochDate")
		case day.Temperature == nil:
			return models.ForecastSummary{}, missing(path + ".Temperature")
		case day.Temperature.Minimum == nil || day.Temperature.Minimum.Value == nil:
			return models.ForecastSummary{}, missing(path + ".Temperature.Minimum.Value")
		case day.Temperature.Maximum == nil || day.Temperature.Maximum.Value == nil:
			return models.ForecastSummary{}, missing(path + ".Temperature.Maximum.Value")
		case day.Day == nil || day.Day.IconPhrase == nil:
			return models.ForecastSummary{}, missing(path + ".Day.IconPhrase")
		case day.Night == nil || day.Night.IconPhrase == nil:
			return models.ForecastSummary{}, missing(path + ".Night.IconPhrase")
		}

		summary.DailyEntries = append(summary.DailyEntries, models.DailyForecastEntry{
			DateEpochSeconds:      *day.EpochDate,
			MinTemperatureCelsius: day.Temperature.Minimum.Value.Decimal,
			MaxTemperatureCelsius: day.Temperature.Maximum.Value.Decimal,
			DayConditionText:      *day.Day.IconPhrase,
			NightConditionText:    *day.Night.IconPhrase,
		})
	}

	return summary, nil
}

func DecodeHourlyForecast(data []byte) ([]models.HourlyForecastEntry, error) {
	var resp HourlyForecastResponse
	if err := unmarshalSchema(data, &resp, "hourly forecast"); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, schemaMismatch("hourly forecast: expected an array")
	}

	entries := make([]models.HourlyForecastEntry, 0, len(resp))
	for i, hour := range resp {
		path := fmt.Sprintf("[%d]", i)
		switch {
		case hour.EpochDateTime == nil:
			return nil, missing(path + ".EpochDateTime")
		case hour.Temperature == nil || hour.Temperature.Value == nil:
			return nil, missing(path + ".Temperature.Value")
		case hour.IconPhrase == nil:
			return nil, missing(path + ".IconPhrase")
		}

		entries = append(entries, models.HourlyForecastEntry{
			TimestampEpochSeconds: *hour.EpochDateTime,
			TemperatureCelsius:    hour.Temperature.Value.Decimal,
			ConditionText:         *hour.IconPhrase,
		})
	}

	return entries, nil
}

// unmarshalSchema decodes data into v. When the body is an AccuWeather error
// object its code and message are folded into the mismatch error.
func unmarshalSchema(data []byte, v interface{}, what string) error {
	err := schemaJSON.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	var apiErr APIError
	if schemaJSON.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
		return schemaMismatch("%s: upstream error %s: %s", what, apiErr.Code, apiErr.Message)
	}
	return schemaMismatch("%s: %v", what, err)
}

func missing(path string) error {
	return schemaMismatch("missing required field %s", path)
}
