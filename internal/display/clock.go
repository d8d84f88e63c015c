package display

import (
	"fmt"
	"time"
)

const (
	Clock12h = "12h"
	Clock24h = "24h"
)

// Clock formats epoch timestamps in a fixed zone.
type Clock struct {
	loc    *time.Location
	layout string
}

// NewClock builds a clock for format ("12h" or "24h") in the named IANA zone.
// An empty zone means the process local zone.
func NewClock(format, zone string) (*Clock, error) {
	loc := time.Local
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", zone, err)
		}
		loc = l
	}

	var layout string
	switch format {
	case "", Clock12h:
		layout = "3:04 PM"
	case Clock24h:
		layout = "15:04"
	default:
		return nil, fmt.Errorf("unknown clock format %q", format)
	}

	return &Clock{loc: loc, layout: layout}, nil
}

// Short renders hours and minutes without seconds.
func (c *Clock) Short(t time.Time) string {
	return t.In(c.loc).Format(c.layout)
}

func (c *Clock) ShortEpoch(epochSeconds int64) string {
	return c.Short(time.Unix(epochSeconds, 0))
}

// Weekday renders the full day name, e.g. "Monday".
func (c *Clock) Weekday(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).In(c.loc).Format("Monday")
}
