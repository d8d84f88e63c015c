package display

import (
	"github.com/bobby-s-dev/calver-weather/internal/models"
	"github.com/bobby-s-dev/calver-weather/internal/units"
)

const NoForecastHeadline = "No forecast available"

// View is the single-screen rendering of a snapshot. Empty strings mean the
// corresponding model has not been loaded yet.
type View struct {
	Metric      bool      `json:"metric"`
	Temperature string    `json:"temperature"`
	Condition   string    `json:"condition"`
	High        string    `json:"high"`
	Min         string    `json:"min"`
	Headline    string    `json:"headline"`
	Hourly      []HourRow `json:"hourly"`
	Daily       []DayRow  `json:"daily"`
	LastUpdated string    `json:"last_updated"`
}

type HourRow struct {
	Time        string `json:"time"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
}

type DayRow struct {
	Weekday string `json:"weekday"`
	Day     string `json:"day"`
	Night   string `json:"night"`
	Min     string `json:"min"`
	Max     string `json:"max"`
}

// Render formats a snapshot in the requested unit system.
func Render(snap models.Snapshot, metric bool, clock *Clock) View {
	v := View{
		Metric:   metric,
		Headline: NoForecastHeadline,
		Hourly:   []HourRow{},
		Daily:    []DayRow{},
	}

	if snap.Current != nil {
		c := snap.Current.Conditions
		if metric {
			v.Temperature = units.FormatOneDecimal(c.TemperatureCelsius) + units.CelsiusSuffix
		} else {
			v.Temperature = units.FormatOneDecimal(c.TemperatureFahrenheit) + units.FahrenheitSuffix
		}
		v.Condition = c.ConditionText
		v.LastUpdated = snap.Current.LastUpdated
	}

	if snap.Forecast != nil {
		sel := snap.Forecast.Selection
		if sel.HasMax {
			v.High = units.Format(sel.SelectedMax, metric)
		}
		if sel.HasMin {
			v.Min = units.Format(sel.SelectedMin, metric)
		}
		v.Headline = snap.Forecast.Summary.HeadlineText

		for _, day := range snap.Forecast.Summary.DailyEntries {
			v.Daily = append(v.Daily, DayRow{
				Weekday: clock.Weekday(day.DateEpochSeconds),
				Day:     day.DayConditionText,
				Night:   day.NightConditionText,
				Min:     units.Format(day.MinTemperatureCelsius, metric),
				Max:     units.Format(day.MaxTemperatureCelsius, metric),
			})
		}
	}

	for _, hour := range snap.Hourly {
		v.Hourly = append(v.Hourly, HourRow{
			Time:        clock.ShortEpoch(hour.TimestampEpochSeconds),
			Temperature: units.Format(hour.TemperatureCelsius, metric),
			Condition:   hour.ConditionText,
		})
	}

	return v
}
