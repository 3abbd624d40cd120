package tariff

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

var sixty = decimal.NewFromInt(60)

// Resolver prices play intervals against the rate window catalog.
// It is pure computation over catalog reads: no locks, no mutation,
// safe for concurrent use across sessions.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// RateAt returns the hourly rate in effect at instant t, evaluated in loc
// (the club's wall clock). The boolean is false when no window matches.
func (r *Resolver) RateAt(ctx context.Context, tableTypeID id.ID, t time.Time, loc *time.Location) (types.Money, bool, error) {
	windows, err := r.catalog.ListActiveByTableType(ctx, tableTypeID)
	if err != nil {
		return types.Zero(), false, fmt.Errorf("list rate windows: %w", err)
	}

	local := t.In(location(loc))
	rate, ok := matchRate(windows, local.Weekday(), TimeOfDayAt(local))
	return rate, ok, nil
}

// CalculateSessionCost computes the total time cost of [startAt, endAt).
//
// The interval is walked minute by minute; each minute is billed at the
// highest-priority window in effect, falling back to the session's frozen
// rate, then to zero. Per-minute evaluation is deliberately chosen over
// closed-form interval math: windows change mid-session and wrap midnight
// asymmetrically, and sessions are bounded in hours, so O(minutes) is fine.
//
// The walk happens on the club's wall clock (loc); nil means UTC.
// A non-positive interval costs zero. The resolver never fails on an
// empty catalog.
func (r *Resolver) CalculateSessionCost(
	ctx context.Context,
	tableTypeID id.ID,
	startAt, endAt time.Time,
	fallbackRatePerHour types.Money,
	loc *time.Location,
) (types.Money, error) {
	if !endAt.After(startAt) {
		return types.Zero(), nil
	}

	windows, err := r.catalog.ListActiveByTableType(ctx, tableTypeID)
	if err != nil {
		return types.Zero(), fmt.Errorf("list rate windows: %w", err)
	}

	l := location(loc)
	minutes := int(endAt.Sub(startAt) / time.Minute)

	// Sum hourly rates per minute, divide by 60 once at the end.
	total := decimal.Zero
	cursor := startAt.In(l)
	for i := 0; i < minutes; i++ {
		rate, ok := matchRate(windows, cursor.Weekday(), TimeOfDayAt(cursor))
		if !ok {
			rate = fallbackRatePerHour
		}
		total = total.Add(rate)
		cursor = cursor.Add(time.Minute)
	}

	return total.Div(sixty), nil
}

// matchRate finds the first window in effect. Windows arrive pre-sorted
// by priority desc, id asc, so the first match is the winner.
func matchRate(windows []RateWindow, day time.Weekday, tod TimeOfDay) (types.Money, bool) {
	for i := range windows {
		if windows[i].MatchesAt(day, tod) {
			return windows[i].PricePerHour, true
		}
	}
	return types.Zero(), false
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
