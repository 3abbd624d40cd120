package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"cueclub/internal/domain/discount"
)

// CreateDiscountRequest for creating discount codes.
type CreateDiscountRequest struct {
	Code        string          `json:"code" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Type        string          `json:"type" binding:"required"`
	Value       decimal.Decimal `json:"value" binding:"required"`
	ValidFrom   *time.Time      `json:"validFrom"`
	ValidUntil  *time.Time      `json:"validUntil"`
	UsageLimit  int             `json:"usageLimit" binding:"min=0"`
	Eligibility *string         `json:"eligibility"`
}

// ToEntity builds a discount from the request.
func (r CreateDiscountRequest) ToEntity() *discount.Discount {
	d := discount.NewDiscount(r.Code, r.Name, discount.Type(r.Type), r.Value)
	d.ValidFrom = r.ValidFrom
	d.ValidUntil = r.ValidUntil
	d.UsageLimit = r.UsageLimit
	d.Eligibility = r.Eligibility
	return d
}

// UpdateDiscountRequest for updating discount codes.
type UpdateDiscountRequest struct {
	Name        *string          `json:"name"`
	Type        *string          `json:"type"`
	Value       *decimal.Decimal `json:"value"`
	ValidFrom   *time.Time       `json:"validFrom"`
	ValidUntil  *time.Time       `json:"validUntil"`
	UsageLimit  *int             `json:"usageLimit"`
	Eligibility *string          `json:"eligibility"`
	Active      *bool            `json:"active"`
}

// ApplyTo merges the request into an existing discount.
func (r UpdateDiscountRequest) ApplyTo(d *discount.Discount) {
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Type != nil {
		d.Type = discount.Type(*r.Type)
	}
	if r.Value != nil {
		d.Value = *r.Value
	}
	if r.ValidFrom != nil {
		d.ValidFrom = r.ValidFrom
	}
	if r.ValidUntil != nil {
		d.ValidUntil = r.ValidUntil
	}
	if r.UsageLimit != nil {
		d.UsageLimit = *r.UsageLimit
	}
	if r.Eligibility != nil {
		d.Eligibility = r.Eligibility
	}
	if r.Active != nil {
		d.Active = *r.Active
	}
}
