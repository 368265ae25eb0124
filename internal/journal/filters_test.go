package journal

import (
	"testing"
	"time"

	"forex-journal-go/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func tradeAt(id uint, created time.Time, instrument, timeframe, strategy string) models.Trade {
	return models.Trade{
		Model:      gorm.Model{ID: id, CreatedAt: created},
		Instrument: instrument,
		Timeframe:  timeframe,
		Strategy:   strategy,
	}
}

func TestFiltersApply(t *testing.T) {
	now := time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC) // a Wednesday

	trades := []models.Trade{
		tradeAt(1, now.Add(-2*time.Hour), "XAU/USD", "1h", "smc"),
		tradeAt(2, now.Add(-26*time.Hour), "XAU/USD", "15m", "breakout"),
		tradeAt(3, now.AddDate(0, 0, -10), "EUR/USD", "1h", "smc"),
		tradeAt(4, now.AddDate(0, -2, 0), "XAU/USD", "1h", "smc"),
	}

	testCases := []struct {
		name        string
		filters     Filters
		expectedIDs []uint
		expectErr   bool
	}{
		{"No filters", Filters{}, []uint{1, 2, 3, 4}, false},
		{"Instrument", Filters{Instrument: "XAU/USD"}, []uint{1, 2, 4}, false},
		{"Timeframe", Filters{Timeframe: "1h"}, []uint{1, 3, 4}, false},
		{"Strategy", Filters{Strategy: "smc"}, []uint{1, 3, 4}, false},
		{"Today", Filters{DateRange: DateToday}, []uint{1}, false},
		{"This week is trailing seven days", Filters{DateRange: DateThisWeek}, []uint{1, 2}, false},
		{"This month is calendar month to date", Filters{DateRange: DateThisMonth}, []uint{1, 2, 3}, false},
		{"Filters compose with AND", Filters{Instrument: "XAU/USD", Timeframe: "1h", DateRange: DateThisWeek}, []uint{1}, false},
		{"Unknown date filter", Filters{DateRange: "last_year"}, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			matched, err := tc.filters.Apply(trades, now)

			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidFilter)
				return
			}

			assert.NoError(t, err)
			ids := make([]uint, 0, len(matched))
			for _, m := range matched {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func TestFiltersWindowBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 18, 0, 30, 0, 0, time.UTC)

	// A trade created exactly at the start of the day is inside "today".
	startOfDay := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		tradeAt(1, startOfDay, "", "", ""),
		tradeAt(2, startOfDay.Add(-time.Second), "", "", ""),
	}

	matched, err := Filters{DateRange: DateToday}.Apply(trades, now)
	assert.NoError(t, err)
	assert.Len(t, matched, 1)
	assert.Equal(t, uint(1), matched[0].ID)
}
