// Package discount provides discount codes applied to session receipts.
// A code carries a percent or fixed value, a validity window, an optional
// usage limit and an optional eligibility expression evaluated against
// the session at close time.
package discount

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// Type defines how the discount value is interpreted.
type Type string

const (
	TypePercent Type = "percent" // Value is 0..100
	TypeFixed   Type = "fixed"   // Value is a money amount
)

var hundred = decimal.NewFromInt(100)

// Discount is one discount code.
type Discount struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Type Type   `db:"type" json:"type"`

	// Value is a percentage for TypePercent, a money amount for TypeFixed.
	Value types.Money `db:"value" json:"value"`

	ValidFrom  *time.Time `db:"valid_from" json:"validFrom,omitempty"`
	ValidUntil *time.Time `db:"valid_until" json:"validUntil,omitempty"`

	// UsageLimit caps total redemptions; zero means unlimited.
	UsageLimit int `db:"usage_limit" json:"usageLimit"`
	UsedCount  int `db:"used_count" json:"usedCount"`

	// Eligibility is an optional CEL expression over session facts
	// (playMinutes, timeCost, itemsTotal, total, weekday, tableType).
	// Empty means the code applies to any session.
	Eligibility *string `db:"eligibility" json:"eligibility,omitempty"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewDiscount creates an active discount code.
func NewDiscount(code, name string, typ Type, value types.Money) *Discount {
	return &Discount{
		ID:     id.New(),
		Code:   code,
		Name:   name,
		Type:   typ,
		Value:  value,
		Active: true,
	}
}

// Validate checks required fields and value ranges.
func (d *Discount) Validate(ctx context.Context) error {
	if d.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	switch d.Type {
	case TypePercent:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return apperror.NewValidation("percent value must be between 0 and 100").
				WithDetail("field", "value")
		}
	case TypeFixed:
		if d.Value.IsNegative() {
			return apperror.NewValidation("fixed value cannot be negative").
				WithDetail("field", "value")
		}
	default:
		return apperror.NewValidation("invalid discount type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}
	if d.ValidFrom != nil && d.ValidUntil != nil && d.ValidUntil.Before(*d.ValidFrom) {
		return apperror.NewValidation("validity window is inverted").
			WithDetail("field", "validUntil")
	}
	if d.UsageLimit < 0 {
		return apperror.NewValidation("usage limit cannot be negative").
			WithDetail("field", "usageLimit")
	}
	return nil
}

// UsableAt checks the code's own state at instant t: active flag,
// validity window and usage limit. Eligibility is checked separately
// because it needs session facts.
func (d *Discount) UsableAt(t time.Time) error {
	if !d.Active {
		return apperror.NewDiscountNotUsable(d.Code, "code is inactive")
	}
	if d.ValidFrom != nil && t.Before(*d.ValidFrom) {
		return apperror.NewDiscountNotUsable(d.Code, "code is not yet valid")
	}
	if d.ValidUntil != nil && t.After(*d.ValidUntil) {
		return apperror.NewDiscountNotUsable(d.Code, "code has expired")
	}
	if d.UsageLimit > 0 && d.UsedCount >= d.UsageLimit {
		return apperror.NewDiscountNotUsable(d.Code, "usage limit reached")
	}
	return nil
}

// Amount computes the discount amount for the given receipt total.
// The result never exceeds the total.
func (d *Discount) Amount(total types.Money) types.Money {
	if total.IsNegative() || total.IsZero() {
		return types.Zero()
	}

	var amt types.Money
	switch d.Type {
	case TypePercent:
		amt = total.Mul(d.Value).Div(hundred)
	case TypeFixed:
		amt = d.Value
	default:
		return types.Zero()
	}

	if amt.GreaterThan(total) {
		return total
	}
	return amt
}
