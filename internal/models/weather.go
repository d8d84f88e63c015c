package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies one of the three independently refreshed models.
type Kind string

const (
	KindCurrent  Kind = "current"
	KindForecast Kind = "forecast"
	KindHourly   Kind = "hourly"
)

// AllKinds lists every kind in the order a full refresh dispatches them.
var AllKinds = []Kind{KindCurrent, KindForecast, KindHourly}

// DefaultMinTemperatureIndex selects which daily entry supplies the displayed
// minimum. Older app builds used 0 (today); newer builds use 2.
const DefaultMinTemperatureIndex = 2

type CurrentConditions struct {
	TemperatureCelsius     decimal.Decimal `json:"temperature_celsius"`
	TemperatureFahrenheit  decimal.Decimal `json:"temperature_fahrenheit"`
	ConditionText          string          `json:"condition_text"`
	ObservedAtEpochSeconds int64           `json:"observed_at_epoch_seconds"`
}

func (c CurrentConditions) ObservedAt() time.Time {
	return time.Unix(c.ObservedAtEpochSeconds, 0)
}

type DailyForecastEntry struct {
	DateEpochSeconds      int64           `json:"date_epoch_seconds"`
	MinTemperatureCelsius decimal.Decimal `json:"min_temperature_celsius"`
	MaxTemperatureCelsius decimal.Decimal `json:"max_temperature_celsius"`
	DayConditionText      string          `json:"day_condition_text"`
	NightConditionText    string          `json:"night_condition_text"`
}

// Inverted reports entries whose minimum exceeds the maximum. Upstream data
// is not rejected for this.
func (e DailyForecastEntry) Inverted() bool {
	return e.MinTemperatureCelsius.GreaterThan(e.MaxTemperatureCelsius)
}

type ForecastSummary struct {
	HeadlineText string               `json:"headline_text"`
	DailyEntries []DailyForecastEntry `json:"daily_entries"`
}

type HourlyForecastEntry struct {
	TimestampEpochSeconds int64           `json:"timestamp_epoch_seconds"`
	TemperatureCelsius    decimal.Decimal `json:"temperature_celsius"`
	ConditionText         string          `json:"condition_text"`
}

// DisplayTemperatureSelection is the High/Min pair shown next to the current
// temperature. HasMax and HasMin are false when the forecast is too short.
type DisplayTemperatureSelection struct {
	SelectedMax decimal.Decimal `json:"selected_max"`
	SelectedMin decimal.Decimal `json:"selected_min"`
	MinIndex    int             `json:"min_index"`
	HasMax      bool            `json:"has_max"`
	HasMin      bool            `json:"has_min"`
}

// SelectDisplayTemperatures takes the maximum from entry 0 and the minimum
// from entry minIndex.
func SelectDisplayTemperatures(entries []DailyForecastEntry, minIndex int) DisplayTemperatureSelection {
	sel := DisplayTemperatureSelection{MinIndex: minIndex}

	if len(entries) > 0 {
		sel.SelectedMax = entries[0].MaxTemperatureCelsius
		sel.HasMax = true
	}
	if minIndex >= 0 && minIndex < len(entries) {
		sel.SelectedMin = entries[minIndex].MinTemperatureCelsius
		sel.HasMin = true
	}

	return sel
}

// CurrentState is replaced as a whole on every successful current-conditions
// refresh.
type CurrentState struct {
	Conditions  CurrentConditions `json:"conditions"`
	LastUpdated string            `json:"last_updated"`
}

// ForecastState is replaced as a whole on every successful forecast refresh.
type ForecastState struct {
	Summary   ForecastSummary             `json:"summary"`
	Selection DisplayTemperatureSelection `json:"selection"`
}

// Clone returns a copy that shares no slices with the receiver.
func (s ForecastState) Clone() ForecastState {
	out := s
	if s.Summary.DailyEntries != nil {
		out.Summary.DailyEntries = make([]DailyForecastEntry, len(s.Summary.DailyEntries))
		copy(out.Summary.DailyEntries, s.Summary.DailyEntries)
	}
	return out
}

// Snapshot is a consistent read of every model at one instant. Nil fields
// have never been loaded.
type Snapshot struct {
	Current  *CurrentState         `json:"current"`
	Forecast *ForecastState        `json:"forecast"`
	Hourly   []HourlyForecastEntry `json:"hourly"`
	Versions map[Kind]uint64       `json:"versions"`
	Updated  map[Kind]time.Time    `json:"updated"`
}

// Loaded reports whether the given kind has been set at least once.
func (s Snapshot) Loaded(kind Kind) bool {
	return s.Versions[kind] > 0
}
