package tariff

import (
	"context"

	"cueclub/internal/core/id"
)

// Catalog is the read side the resolver depends on.
// Implementations must return active windows ordered by priority
// descending, then id ascending (first-created wins on priority ties;
// UUIDv7 ids are time-ordered so id order is creation order).
type Catalog interface {
	ListActiveByTableType(ctx context.Context, tableTypeID id.ID) ([]RateWindow, error)
}

// Repository defines persistence for rate windows.
// The admin CRUD layer owns mutations; the resolver only reads.
type Repository interface {
	Catalog

	GetByID(ctx context.Context, windowID id.ID) (*RateWindow, error)
	ListByTableType(ctx context.Context, tableTypeID id.ID) ([]RateWindow, error)
	Create(ctx context.Context, w *RateWindow) error
	Update(ctx context.Context, w *RateWindow) error
	Delete(ctx context.Context, windowID id.ID) error
}
