package journal

import (
	"fmt"
	"time"

	"forex-journal-go/internal/models"
)

// Recognized date filter values.
const (
	DateToday     = "today"
	DateThisWeek  = "this_week"
	DateThisMonth = "this_month"
)

// Filters narrow the trade set fed to the aggregator. All set fields
// compose with logical AND; zero values mean "no restriction".
type Filters struct {
	Instrument string
	Timeframe  string
	Strategy   string
	DateRange  string // "", "today", "this_week" or "this_month"
}

// window resolves the date range to a half-open interval [from, now).
// A zero from means unbounded.
func (f Filters) window(now time.Time) (time.Time, error) {
	switch f.DateRange {
	case "":
		return time.Time{}, nil
	case DateToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case DateThisWeek:
		// Trailing seven days, not calendar week.
		return now.AddDate(0, 0, -7), nil
	case DateThisMonth:
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFilter, f.DateRange)
	}
}

// Apply returns the subset of trades matching every set filter, judged
// against the trade's creation time.
func (f Filters) Apply(trades []models.Trade, now time.Time) ([]models.Trade, error) {
	from, err := f.window(now)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if f.Instrument != "" && t.Instrument != f.Instrument {
			continue
		}
		if f.Timeframe != "" && t.Timeframe != f.Timeframe {
			continue
		}
		if f.Strategy != "" && t.Strategy != f.Strategy {
			continue
		}
		if !from.IsZero() && (t.CreatedAt.Before(from) || !t.CreatedAt.Before(now)) {
			continue
		}
		matched = append(matched, t)
	}
	return matched, nil
}
