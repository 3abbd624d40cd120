package discount

import (
	"context"

	"cueclub/internal/core/id"
)

// Repository defines persistence for discount codes.
//
// IncrementUsage must run inside the caller's transaction and bump
// used_count atomically, failing when the limit is already reached, so
// two concurrent receipts cannot both redeem the last use of a code.
type Repository interface {
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	GetByID(ctx context.Context, discountID id.ID) (*Discount, error)
	GetByCode(ctx context.Context, code string) (*Discount, error)
	List(ctx context.Context, includeInactive bool) ([]Discount, error)

	// IncrementUsage atomically increments used_count while it is still
	// under the limit. Returns false when the limit was reached.
	IncrementUsage(ctx context.Context, discountID id.ID) (bool, error)
}
