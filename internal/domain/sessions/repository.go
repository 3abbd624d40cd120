package sessions

import (
	"context"

	"cueclub/internal/core/id"
)

// Repository defines persistence for sessions and their order items.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, sessionID id.ID) (*Session, error)

	// GetActiveByTable returns the open session on a table
	// (active or pending_end), or a NotFound error.
	GetActiveByTable(ctx context.Context, tableID id.ID) (*Session, error)

	List(ctx context.Context, filter ListFilter) ([]Session, error)

	AddItem(ctx context.Context, oi *OrderItem) error
	GetItem(ctx context.Context, orderItemID id.ID) (*OrderItem, error)
	RemoveItem(ctx context.Context, orderItemID id.ID) error
	ListItems(ctx context.Context, sessionID id.ID) ([]OrderItem, error)
}
