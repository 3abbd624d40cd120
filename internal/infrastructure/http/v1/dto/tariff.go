package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"cueclub/internal/core/id"
	"cueclub/internal/domain/tariff"
)

// CreateRateWindowRequest for creating rate windows.
// Days is a list of weekdays (0 = Sunday .. 6 = Saturday). StartTime
// and EndTime are "HH:MM"; omit both for an all-day window.
type CreateRateWindowRequest struct {
	Name         string          `json:"name" binding:"required"`
	PricePerHour decimal.Decimal `json:"pricePerHour" binding:"required"`
	Days         []int           `json:"days" binding:"required,min=1"`
	StartTime    *string         `json:"startTime"`
	EndTime      *string         `json:"endTime"`
	Priority     int             `json:"priority"`
}

// ToEntity builds a rate window from the request.
func (r CreateRateWindowRequest) ToEntity(tableTypeID id.ID) (*tariff.RateWindow, error) {
	w := tariff.NewRateWindow(tableTypeID, r.Name, r.PricePerHour)
	w.Days = daysMask(r.Days)
	w.Priority = r.Priority

	var err error
	if w.StartTime, err = parseTimeOfDay(r.StartTime); err != nil {
		return nil, err
	}
	if w.EndTime, err = parseTimeOfDay(r.EndTime); err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateRateWindowRequest for updating rate windows.
type UpdateRateWindowRequest struct {
	Name         *string          `json:"name"`
	PricePerHour *decimal.Decimal `json:"pricePerHour"`
	Days         []int            `json:"days"`
	StartTime    *string          `json:"startTime"`
	EndTime      *string          `json:"endTime"`
	Priority     *int             `json:"priority"`
	Active       *bool            `json:"active"`
}

// ApplyTo merges the request into an existing window.
func (r UpdateRateWindowRequest) ApplyTo(w *tariff.RateWindow) error {
	if r.Name != nil {
		w.Name = *r.Name
	}
	if r.PricePerHour != nil {
		w.PricePerHour = *r.PricePerHour
	}
	if len(r.Days) > 0 {
		w.Days = daysMask(r.Days)
	}
	if r.StartTime != nil {
		st, err := parseTimeOfDay(r.StartTime)
		if err != nil {
			return err
		}
		w.StartTime = st
	}
	if r.EndTime != nil {
		et, err := parseTimeOfDay(r.EndTime)
		if err != nil {
			return err
		}
		w.EndTime = et
	}
	if r.Priority != nil {
		w.Priority = *r.Priority
	}
	if r.Active != nil {
		w.Active = *r.Active
	}
	return nil
}

func daysMask(days []int) tariff.Weekdays {
	var w tariff.Weekdays
	for _, d := range days {
		if d >= 0 && d <= 6 {
			w |= 1 << uint(d)
		}
	}
	return w
}

func parseTimeOfDay(s *string) (*tariff.TimeOfDay, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", *s)
	if err != nil {
		return nil, err
	}
	tod := tariff.NewTimeOfDay(t.Hour(), t.Minute())
	return &tod, nil
}
