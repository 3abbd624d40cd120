package item

import (
	"context"

	"cueclub/internal/core/id"
)

// ListFilter narrows catalog listings.
type ListFilter struct {
	Category        *Category
	IncludeInactive bool
	Search          string
	Limit           int
	Offset          int
}

// Repository defines persistence for the item catalog.
type Repository interface {
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
	GetBySKU(ctx context.Context, sku string) (*Item, error)
	List(ctx context.Context, filter ListFilter) ([]Item, error)
}
