// Package tx defines the transaction boundary domain services depend on.
// The pgx-backed implementation lives in infrastructure/storage/postgres;
// services only ever see this interface, which keeps pricing and stock
// logic testable with a pass-through fake.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction.
type Manager interface {
	// RunInTransaction executes fn within a transaction: commit when fn
	// returns nil, rollback otherwise. A nested call joins the
	// transaction already carried by ctx instead of opening a new one,
	// so a session close can call the stock service without stacking
	// BEGINs.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions for report-style queries
// that want a consistent snapshot without taking write locks.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction; writes fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
