package display

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText prints the view as the single screen the terminal client shows.
func WriteText(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\t%s\n", orDash(v.Temperature), orDash(v.Condition))
	fmt.Fprintf(tw, "High %s\tMin %s\n", orDash(v.High), orDash(v.Min))
	fmt.Fprintf(tw, "%s\n", v.Headline)

	if len(v.Hourly) > 0 {
		fmt.Fprintln(tw)
		for _, h := range v.Hourly {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Time, h.Temperature, h.Condition)
		}
	}

	if len(v.Daily) > 0 {
		fmt.Fprintln(tw)
		for _, d := range v.Daily {
			fmt.Fprintf(tw, "%s\t%s / %s\t%s\t%s\n", d.Weekday, d.Max, d.Min, d.Day, d.Night)
		}
	}

	if v.LastUpdated != "" {
		fmt.Fprintf(tw, "\nLast API update %s\n", v.LastUpdated)
	}

	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
