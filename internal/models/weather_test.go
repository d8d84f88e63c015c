package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func entry(min, max int64) DailyForecastEntry {
	return DailyForecastEntry{
		MinTemperatureCelsius: decimal.NewFromInt(min),
		MaxTemperatureCelsius: decimal.NewFromInt(max),
	}
}

func TestSelectDisplayTemperaturesDefaultIndex(t *testing.T) {
	entries := []DailyForecastEntry{entry(10, 20), entry(8, 18), entry(5, 15)}

	sel := SelectDisplayTemperatures(entries, DefaultMinTemperatureIndex)

	if !sel.HasMax || !sel.SelectedMax.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected max 20, got %s (has=%v)", sel.SelectedMax, sel.HasMax)
	}
	if !sel.HasMin || !sel.SelectedMin.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected min 5 from index 2, got %s (has=%v)", sel.SelectedMin, sel.HasMin)
	}
	if sel.MinIndex != 2 {
		t.Errorf("expected min index 2, got %d", sel.MinIndex)
	}
}

func TestSelectDisplayTemperaturesShortForecast(t *testing.T) {
	sel := SelectDisplayTemperatures([]DailyForecastEntry{entry(10, 20)}, 2)
	if !sel.HasMax {
		t.Error("expected max to be available")
	}
	if sel.HasMin {
		t.Error("expected min to be unavailable when index is out of range")
	}

	empty := SelectDisplayTemperatures(nil, 0)
	if empty.HasMax || empty.HasMin {
		t.Errorf("expected nothing selected for empty forecast, got %+v", empty)
	}
}

func TestInverted(t *testing.T) {
	if entry(10, 20).Inverted() {
		t.Error("10..20 should not be inverted")
	}
	if !entry(21, 20).Inverted() {
		t.Error("21..20 should be inverted")
	}
}

func TestForecastStateCloneIsIndependent(t *testing.T) {
	s := ForecastState{Summary: ForecastSummary{DailyEntries: []DailyForecastEntry{entry(1, 2)}}}
	c := s.Clone()
	c.Summary.DailyEntries[0].DayConditionText = "changed"

	if s.Summary.DailyEntries[0].DayConditionText != "" {
		t.Error("clone shares backing array with original")
	}
}
