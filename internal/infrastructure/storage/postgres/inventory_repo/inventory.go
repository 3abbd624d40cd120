// Package inventory_repo provides the PostgreSQL implementation of the
// stock record and movement ledger storage.
// In Database-per-Tenant architecture, TxManager is obtained from context.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
	"cueclub/internal/domain/inventory"
	"cueclub/internal/infrastructure/storage/postgres"
)

const (
	recordsTable   = "inv_records"
	movementsTable = "inv_movements"
)

var recordColumns = []string{
	"id", "item_id", "quantity", "average_cost", "last_restock_at", "updated_at",
}

var movementColumns = []string{
	"id", "item_id", "actor_id", "kind", "quantity_delta", "quantity_snapshot",
	"unit_cost", "reference_type", "reference_id", "note", "created_at",
}

// Compile-time check.
var _ inventory.Repository = (*Repo)(nil)

// Repo implements inventory.Repository.
type Repo struct {
	builder squirrel.StatementBuilderType
}

// NewRepo creates an inventory repository.
func NewRepo() *Repo {
	return &Repo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// GetRecord returns the current position without creating it.
func (r *Repo) GetRecord(ctx context.Context, itemID id.ID) (*inventory.Record, error) {
	q := r.builder.Select(recordColumns...).
		From(recordsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec inventory.Record
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return inventory.NewRecord(itemID), nil
		}
		return nil, fmt.Errorf("get record: %w", err)
	}

	return &rec, nil
}

// GetRecordForUpdate returns the position with a row lock, creating the
// zero record first if none exists. The insert and the locking select
// ride the caller's transaction; the lock holds until commit.
func (r *Repo) GetRecordForUpdate(ctx context.Context, itemID id.ID) (*inventory.Record, error) {
	txm := r.getTxManager(ctx)
	if txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetRecordForUpdate requires a transaction")
	}
	querier := txm.GetQuerier(ctx)

	_, err := querier.Exec(ctx, `
		INSERT INTO inv_records (id, item_id, quantity, average_cost, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (item_id) DO NOTHING
	`, id.New(), itemID)
	if err != nil {
		return nil, fmt.Errorf("ensure record: %w", err)
	}

	var rec inventory.Record
	err = pgxscan.Get(ctx, querier, &rec, `
		SELECT id, item_id, quantity, average_cost, last_restock_at, updated_at
		FROM inv_records
		WHERE item_id = $1
		FOR UPDATE
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("lock record: %w", err)
	}

	return &rec, nil
}

// UpdateRecord writes the position of a locked record.
func (r *Repo) UpdateRecord(ctx context.Context, rec *inventory.Record) error {
	q := r.builder.Update(recordsTable).
		Set("quantity", rec.Quantity).
		Set("average_cost", rec.AverageCost).
		Set("last_restock_at", rec.LastRestockAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"item_id": rec.ItemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory record", rec.ItemID.String())
	}

	return nil
}

// AppendMovement inserts one immutable ledger row.
func (r *Repo) AppendMovement(ctx context.Context, mv *inventory.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			mv.ID, mv.ItemID, mv.ActorID, mv.Kind, mv.QuantityDelta,
			mv.QuantitySnapshot, mv.UnitCost, mv.ReferenceType, mv.ReferenceID,
			mv.Note, mv.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return nil
}

// ListMovements returns ledger history for an item, oldest first.
func (r *Repo) ListMovements(ctx context.Context, itemID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"item_id": itemID})

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at", "id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []inventory.Movement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// SumMovementDeltas returns the sum of all quantity deltas for an item.
func (r *Repo) SumMovementDeltas(ctx context.Context, itemID id.ID) (types.Quantity, error) {
	var sum int64
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	err := querier.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_delta), 0)
		FROM inv_movements
		WHERE item_id = $1
	`, itemID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum deltas: %w", err)
	}

	return types.Quantity(sum), nil
}

// ListRecordsBelow returns positions with quantity at or below the
// threshold.
func (r *Repo) ListRecordsBelow(ctx context.Context, threshold types.Quantity) ([]inventory.Record, error) {
	sql, args, err := r.lowStockQuery(threshold).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []inventory.Record
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	return records, nil
}

// lowStockQuery is inclusive: an item sitting exactly at its reorder
// threshold already needs attention.
func (r *Repo) lowStockQuery(threshold types.Quantity) squirrel.SelectBuilder {
	return r.builder.Select(recordColumns...).
		From(recordsTable).
		Where(squirrel.LtOrEq{"quantity": threshold}).
		OrderBy("quantity")
}
