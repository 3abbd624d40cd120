package tariff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// staticCatalog serves a fixed, pre-sorted window list.
type staticCatalog struct {
	windows []RateWindow
}

func (c *staticCatalog) ListActiveByTableType(ctx context.Context, tableTypeID id.ID) ([]RateWindow, error) {
	return c.windows, nil
}

func tod(h, m int) *TimeOfDay {
	t := NewTimeOfDay(h, m)
	return &t
}

func window(tableType id.ID, price string, days Weekdays, start, end *TimeOfDay, priority int) RateWindow {
	return RateWindow{
		ID:           id.New(),
		TableTypeID:  tableType,
		PricePerHour: types.MustMoney(price),
		Days:         days,
		StartTime:    start,
		EndTime:      end,
		Priority:     priority,
		Active:       true,
	}
}

// at builds a UTC instant on a fixed week: 2025-06-02 is a Monday.
func at(day time.Weekday, h, m int) time.Time {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) // Sunday
	return base.AddDate(0, 0, int(day)).Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestCalculateSessionCost_NonPositiveInterval(t *testing.T) {
	tableType := id.New()
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{
		window(tableType, "600", AllWeek, nil, nil, 0),
	}})

	start := at(time.Monday, 12, 0)

	cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, start, types.Zero(), nil)
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "zero duration must cost 0, got %s", cost)

	cost, err = resolver.CalculateSessionCost(context.Background(), tableType, start, start.Add(-time.Hour), types.Zero(), nil)
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "negative duration must cost 0, got %s", cost)
}

func TestCalculateSessionCost_SingleAllDayWindow(t *testing.T) {
	tableType := id.New()
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{
		window(tableType, "600", AllWeek, nil, nil, 0),
	}})

	tests := []struct {
		name    string
		minutes int
		want    string
	}{
		{"one hour", 60, "600"},
		{"90 minutes", 90, "900"},
		{"one minute", 1, "10"},
		{"seven minutes", 7, "70"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := at(time.Wednesday, 14, 0)
			end := start.Add(time.Duration(tt.minutes) * time.Minute)

			cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
			require.NoError(t, err)
			assert.True(t, cost.Equal(types.MustMoney(tt.want)),
				"D=%d: want %s, got %s", tt.minutes, tt.want, cost)
		})
	}
}

func TestCalculateSessionCost_OvernightWindow(t *testing.T) {
	tableType := id.New()

	// 22:00-02:00 every day at 900/h; nothing else, fallback 0.
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{
		window(tableType, "900", AllWeek, tod(22, 0), tod(2, 0), 10),
	}})

	t.Run("fully inside, crossing midnight", func(t *testing.T) {
		start := at(time.Friday, 23, 30)
		end := start.Add(2 * time.Hour) // 01:30 Saturday

		cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
		require.NoError(t, err)
		assert.True(t, cost.Equal(types.MustMoney("1800")), "want 1800, got %s", cost)
	})

	t.Run("tail minutes priced via overnight carry", func(t *testing.T) {
		// Window applies on Fridays only. Saturday 00:00-01:00 is still
		// the Friday window's tail.
		fridayOnly := NewResolver(&staticCatalog{windows: []RateWindow{
			window(tableType, "900", NewWeekdays(time.Friday), tod(22, 0), tod(2, 0), 10),
		}})

		start := at(time.Saturday, 0, 0)
		end := start.Add(time.Hour)

		cost, err := fridayOnly.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
		require.NoError(t, err)
		assert.True(t, cost.Equal(types.MustMoney("900")), "want 900, got %s", cost)

		// Saturday evening is NOT covered: Friday-only window, and carry
		// only reaches until 02:00.
		start = at(time.Saturday, 22, 30)
		end = start.Add(time.Hour)

		cost, err = fridayOnly.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
		require.NoError(t, err)
		assert.True(t, cost.IsZero(), "want 0, got %s", cost)
	})
}

func TestCalculateSessionCost_PriorityWins(t *testing.T) {
	tableType := id.New()

	// Happy-hour override 18:00-20:00 at 300/h beats the base 600/h
	// regardless of declaration order; catalog serves priority desc.
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{
		window(tableType, "300", AllWeek, tod(18, 0), tod(20, 0), 100),
		window(tableType, "600", AllWeek, nil, nil, 0),
	}})

	start := at(time.Tuesday, 17, 0)
	end := at(time.Tuesday, 21, 0)

	// 60m at 600 + 121m at 300 + 59m at 600.
	// Override covers 18:00..20:00 inclusive of the 20:00 boundary minute.
	cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
	require.NoError(t, err)

	want := types.MustMoney("600").Mul(types.MustMoney("119")).Add(
		types.MustMoney("300").Mul(types.MustMoney("121"))).Div(types.MustMoney("60"))
	assert.True(t, cost.Equal(want), "want %s, got %s", want, cost)
}

func TestCalculateSessionCost_EqualPriorityFirstCreatedWins(t *testing.T) {
	tableType := id.New()

	first := window(tableType, "500", AllWeek, nil, nil, 5)
	second := window(tableType, "700", AllWeek, nil, nil, 5)

	// Catalog contract: equal priority ordered id asc = creation order.
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{first, second}})

	start := at(time.Monday, 10, 0)
	end := start.Add(time.Hour)

	cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("500")), "first-created window must win, got %s", cost)
}

func TestCalculateSessionCost_FallbackRate(t *testing.T) {
	tableType := id.New()

	t.Run("frozen rate when no window matches", func(t *testing.T) {
		resolver := NewResolver(&staticCatalog{})

		start := at(time.Monday, 10, 0)
		end := start.Add(90 * time.Minute)

		cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.MustMoney("400"), nil)
		require.NoError(t, err)
		assert.True(t, cost.Equal(types.MustMoney("600")), "want 600, got %s", cost)
	})

	t.Run("zero when fallback absent too", func(t *testing.T) {
		resolver := NewResolver(&staticCatalog{})

		start := at(time.Monday, 10, 0)
		end := start.Add(time.Hour)

		cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
		require.NoError(t, err)
		assert.True(t, cost.IsZero())
	})
}

func TestCalculateSessionCost_PointWindowQuirk(t *testing.T) {
	tableType := id.New()

	// start == end is a single-instant window, not an overnight or
	// all-day one. It covers exactly one minute slot.
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{
		window(tableType, "1200", AllWeek, tod(12, 0), tod(12, 0), 50),
		window(tableType, "600", AllWeek, nil, nil, 0),
	}})

	start := at(time.Thursday, 11, 0)
	end := at(time.Thursday, 13, 0)

	// 119 minutes at 600, exactly one (12:00) at 1200.
	cost, err := resolver.CalculateSessionCost(context.Background(), tableType, start, end, types.Zero(), nil)
	require.NoError(t, err)

	want := types.MustMoney("600").Mul(types.MustMoney("119")).Add(types.MustMoney("1200")).Div(types.MustMoney("60"))
	assert.True(t, cost.Equal(want), "want %s, got %s", want, cost)
}

func TestRateAt(t *testing.T) {
	tableType := id.New()
	resolver := NewResolver(&staticCatalog{windows: []RateWindow{
		window(tableType, "900", AllWeek, tod(22, 0), tod(2, 0), 10),
		window(tableType, "600", AllWeek, tod(8, 0), tod(21, 59), 0),
	}})

	rate, ok, err := resolver.RateAt(context.Background(), tableType, at(time.Monday, 23, 15), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rate.Equal(types.MustMoney("900")))

	rate, ok, err = resolver.RateAt(context.Background(), tableType, at(time.Tuesday, 1, 30), nil)
	require.NoError(t, err)
	require.True(t, ok, "overnight carry must match the next morning")
	assert.True(t, rate.Equal(types.MustMoney("900")))

	_, ok, err = resolver.RateAt(context.Background(), tableType, at(time.Tuesday, 5, 0), nil)
	require.NoError(t, err)
	assert.False(t, ok, "dead hours must not match")
}

func TestRateWindow_MatchesAt(t *testing.T) {
	tableType := id.New()

	overnight := window(tableType, "900", NewWeekdays(time.Friday), tod(22, 0), tod(2, 0), 0)

	assert.True(t, overnight.MatchesAt(time.Friday, NewTimeOfDay(22, 0)))
	assert.True(t, overnight.MatchesAt(time.Friday, NewTimeOfDay(23, 59)))
	assert.True(t, overnight.MatchesAt(time.Saturday, NewTimeOfDay(0, 0)))
	assert.True(t, overnight.MatchesAt(time.Saturday, NewTimeOfDay(2, 0)))
	assert.False(t, overnight.MatchesAt(time.Saturday, NewTimeOfDay(2, 1)))
	assert.False(t, overnight.MatchesAt(time.Friday, NewTimeOfDay(21, 59)))
	assert.False(t, overnight.MatchesAt(time.Sunday, NewTimeOfDay(1, 0)))

	allDay := window(tableType, "600", NewWeekdays(time.Monday), nil, nil, 0)
	assert.True(t, allDay.MatchesAt(time.Monday, NewTimeOfDay(0, 0)))
	assert.True(t, allDay.MatchesAt(time.Monday, NewTimeOfDay(23, 59)))
	assert.False(t, allDay.MatchesAt(time.Tuesday, NewTimeOfDay(12, 0)))
}
