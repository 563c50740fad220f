// Package analytics serves the admin dashboard charts: how many users,
// courses and orders were created in each of the last twelve 30-day windows.
package analytics

import (
	"context"
	"fmt"
	"time"
)

const (
	windowDays = 30
	windows    = 12

	// monthLayout labels a window by its end date, e.g. "Mar 4, 2025".
	monthLayout = "Jan 2, 2006"
)

// Counter counts records created in [from, to). The user, course and order
// repositories all satisfy it.
type Counter interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(ctx context.Context, from, to time.Time) (int, error)

// CountCreatedBetween implements Counter.
func (f CounterFunc) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return f(ctx, from, to)
}

// MonthData is one bar of a chart.
type MonthData struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Report is the chart payload.
type Report struct {
	Last12Months []MonthData `json:"last12Months"`
}

// Last12Months counts records in twelve consecutive 30-day windows. The
// newest window ends at the start of tomorrow (UTC); results are oldest
// first.
func Last12Months(ctx context.Context, counter Counter, now time.Time) (Report, error) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthData, 0, windows)
	for i := windows - 1; i >= 0; i-- {
		windowEnd := end.AddDate(0, 0, -i*windowDays)
		windowStart := windowEnd.AddDate(0, 0, -windowDays)

		n, err := counter.CountCreatedBetween(ctx, windowStart, windowEnd)
		if err != nil {
			return Report{}, fmt.Errorf("counting %s..%s: %w",
				windowStart.Format(time.DateOnly), windowEnd.Format(time.DateOnly), err)
		}
		out = append(out, MonthData{Month: windowEnd.Format(monthLayout), Count: n})
	}
	return Report{Last12Months: out}, nil
}
