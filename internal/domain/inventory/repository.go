package inventory

import (
	"context"
	"time"

	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// Repository defines persistence for stock records and the movement ledger.
//
// GetRecordForUpdate must be called inside a transaction: it creates the
// zero record when absent and takes an exclusive row lock that serializes
// concurrent mutations per item until commit. The same transaction must
// span the record update and the ledger insert so the pair is atomic.
type Repository interface {
	// GetRecord returns the current position, or the zero position if
	// the item has never moved (without creating it).
	GetRecord(ctx context.Context, itemID id.ID) (*Record, error)

	// GetRecordForUpdate returns the position with a row lock,
	// creating the zero record first if none exists.
	GetRecordForUpdate(ctx context.Context, itemID id.ID) (*Record, error)

	// UpdateRecord writes quantity/average/last-restock of a locked record.
	UpdateRecord(ctx context.Context, rec *Record) error

	// AppendMovement inserts one immutable ledger row.
	AppendMovement(ctx context.Context, mv *Movement) error

	// ListMovements returns ledger history for an item, oldest first.
	ListMovements(ctx context.Context, itemID id.ID, filter MovementFilter) ([]Movement, error)

	// SumMovementDeltas returns the sum of all quantity deltas for an item.
	SumMovementDeltas(ctx context.Context, itemID id.ID) (types.Quantity, error)

	// ListRecordsBelow returns positions with quantity below the threshold.
	ListRecordsBelow(ctx context.Context, threshold types.Quantity) ([]Record, error)
}

// MovementFilter narrows ledger history queries.
type MovementFilter struct {
	Kind     *MovementKind
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
