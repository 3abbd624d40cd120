// Package item provides the sellable item catalog: bar and kitchen goods
// sold into sessions. Items with TracksStock participate in the stock
// valuation engine; the rest (services, rentals) bypass it.
package item

import (
	"context"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// Category groups items on the receipt.
type Category string

const (
	CategoryBar     Category = "bar"
	CategoryKitchen Category = "kitchen"
	CategoryRental  Category = "rental" // cue rental, equipment
	CategoryOther   Category = "other"
)

func isValidCategory(c Category) bool {
	switch c {
	case CategoryBar, CategoryKitchen, CategoryRental, CategoryOther:
		return true
	}
	return false
}

// Item is one sellable catalog entry.
type Item struct {
	ID       id.ID    `db:"id" json:"id"`
	Name     string   `db:"name" json:"name"`
	Category Category `db:"category" json:"category"`
	SKU      *string  `db:"sku" json:"sku,omitempty"`

	// Price is the selling price per unit.
	Price types.Money `db:"price" json:"price"`

	// TracksStock enables inventory accounting for this item.
	TracksStock bool `db:"tracks_stock" json:"tracksStock"`

	// LowStockThreshold triggers the low-stock report when quantity
	// drops below it. Zero disables the report for the item.
	LowStockThreshold types.Quantity `db:"low_stock_threshold" json:"lowStockThreshold"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewItem creates an active catalog item.
func NewItem(name string, category Category, price types.Money) *Item {
	return &Item{
		ID:       id.New(),
		Name:     name,
		Category: category,
		Price:    price,
		Active:   true,
	}
}

// Validate checks required fields.
func (i *Item) Validate(ctx context.Context) error {
	if i.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !isValidCategory(i.Category) {
		return apperror.NewValidation("invalid category").
			WithDetail("field", "category").
			WithDetail("value", string(i.Category))
	}
	if i.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}
	if i.LowStockThreshold.IsNegative() {
		return apperror.NewValidation("low stock threshold cannot be negative").
			WithDetail("field", "lowStockThreshold")
	}
	return nil
}
