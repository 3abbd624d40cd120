// Package tariff provides time-of-day based pricing for table sessions.
// A table type carries a set of rate windows; the resolver prices a play
// interval minute by minute against whichever window is in effect.
package tariff

import (
	"context"
	"fmt"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// MinutesPerDay is the number of minute slots in a calendar day.
const MinutesPerDay = 24 * 60

// TimeOfDay is a minute-of-day value in [0, 1440).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayAt extracts the minute-of-day of t in its location.
func TimeOfDayAt(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Valid reports whether the value is a real minute slot.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Weekdays is a bitmask of applicable weekdays, bit N = time.Weekday(N).
// Sunday is bit 0, matching both time.Weekday and the admin API contract.
type Weekdays uint8

// AllWeek matches every day of the week.
const AllWeek Weekdays = 0x7F

// NewWeekdays builds a mask from individual weekdays.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// Contains reports whether d is in the set.
func (w Weekdays) Contains(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// ContainsPrevious reports whether the day before d is in the set.
// Used for the overnight-carry match: a window that started yesterday
// evening still owns the small hours of today.
func (w Weekdays) ContainsPrevious(d time.Weekday) bool {
	prev := (int(d) + 6) % 7
	return w.Contains(time.Weekday(prev))
}

// IsZero reports an empty set (matches nothing).
func (w Weekdays) IsZero() bool { return w == 0 }

// RateWindow is one pricing rule for a table type.
//
// Both StartTime and EndTime are nil for an all-day window. When
// StartTime > EndTime the window is overnight and spans midnight into
// the following calendar day.
type RateWindow struct {
	ID           id.ID       `db:"id" json:"id"`
	TableTypeID  id.ID       `db:"table_type_id" json:"tableTypeId"`
	Name         string      `db:"name" json:"name"`
	PricePerHour types.Money `db:"price_per_hour" json:"pricePerHour"`
	Days         Weekdays    `db:"days" json:"days"`
	StartTime    *TimeOfDay  `db:"start_time" json:"startTime,omitempty"`
	EndTime      *TimeOfDay  `db:"end_time" json:"endTime,omitempty"`
	Priority     int         `db:"priority" json:"priority"`
	Active       bool        `db:"active" json:"active"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// NewRateWindow creates an all-day, all-week window at the given rate.
func NewRateWindow(tableTypeID id.ID, name string, pricePerHour types.Money) *RateWindow {
	return &RateWindow{
		ID:           id.New(),
		TableTypeID:  tableTypeID,
		Name:         name,
		PricePerHour: pricePerHour,
		Days:         AllWeek,
		Active:       true,
	}
}

// AllDay reports whether the window has no time bounds.
func (w *RateWindow) AllDay() bool {
	return w.StartTime == nil && w.EndTime == nil
}

// Overnight reports whether the window spans midnight.
func (w *RateWindow) Overnight() bool {
	return w.StartTime != nil && w.EndTime != nil && *w.StartTime > *w.EndTime
}

// MatchesAt reports whether the window is in effect at the given
// weekday and minute-of-day.
//
// Two ways to match:
//   - same-day: the day is in the window's day set and the minute falls
//     inside the bounds (for an overnight window, at or after StartTime);
//   - overnight-carry: the previous day is in the day set, the window is
//     overnight, and the minute is at or before EndTime.
//
// A window with StartTime == EndTime matches only that exact minute; it is
// a long-standing quirk of the rate editor and is kept as is.
func (w *RateWindow) MatchesAt(day time.Weekday, tod TimeOfDay) bool {
	if w.Days.Contains(day) {
		switch {
		case w.AllDay():
			return true
		case *w.StartTime <= *w.EndTime:
			if *w.StartTime <= tod && tod <= *w.EndTime {
				return true
			}
		default: // overnight, this is the start day
			if tod >= *w.StartTime {
				return true
			}
		}
	}

	if w.Overnight() && w.Days.ContainsPrevious(day) && tod <= *w.EndTime {
		return true
	}

	return false
}

// Validate implements entity self-validation.
func (w *RateWindow) Validate(ctx context.Context) error {
	if id.IsNil(w.TableTypeID) {
		return apperror.NewValidation("table type is required").
			WithDetail("field", "tableTypeId")
	}
	if w.PricePerHour.IsNegative() {
		return apperror.NewValidation("price per hour cannot be negative").
			WithDetail("field", "pricePerHour")
	}
	if w.Days.IsZero() {
		return apperror.NewValidation("at least one weekday is required").
			WithDetail("field", "days")
	}
	if (w.StartTime == nil) != (w.EndTime == nil) {
		return apperror.NewValidation("start and end time must be set together").
			WithDetail("field", "startTime")
	}
	if w.StartTime != nil && !w.StartTime.Valid() {
		return apperror.NewValidation("start time out of range").
			WithDetail("field", "startTime")
	}
	if w.EndTime != nil && !w.EndTime.Valid() {
		return apperror.NewValidation("end time out of range").
			WithDetail("field", "endTime")
	}
	return nil
}
