package units

import (
	"github.com/shopspring/decimal"
)

const (
	CelsiusSuffix    = "°C"
	FahrenheitSuffix = "°F"
)

var (
	fahrenheitScale  = decimal.RequireFromString("1.8")
	fahrenheitOffset = decimal.NewFromInt(32)
)

// ToFahrenheit converts a Celsius value using c * 1.8 + 32.
func ToFahrenheit(celsius decimal.Decimal) decimal.Decimal {
	return celsius.Mul(fahrenheitScale).Add(fahrenheitOffset)
}

// FormatOneDecimal rounds half away from zero to one fractional digit.
func FormatOneDecimal(value decimal.Decimal) string {
	return value.StringFixed(1)
}

// Format renders a Celsius value in the requested unit system with its suffix.
func Format(celsius decimal.Decimal, metric bool) string {
	if metric {
		return FormatOneDecimal(celsius) + CelsiusSuffix
	}
	return FormatOneDecimal(ToFahrenheit(celsius)) + FahrenheitSuffix
}

// Suffix returns the unit suffix for the given unit system.
func Suffix(metric bool) string {
	if metric {
		return CelsiusSuffix
	}
	return FahrenheitSuffix
}
