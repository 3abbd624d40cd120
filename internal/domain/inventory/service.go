package inventory

import (
	"context"
	"fmt"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/clock"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/internal/core/types"
	"cueclub/pkg/logger"
)

// Service is the stock valuation engine.
// Both mutations run as one atomic transaction around a per-item row
// lock: read position, compute, write position, append ledger row.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	txManager tx.Manager // Optional. If nil, obtained from context (DB-per-tenant).
	clock     clock.Clock
}

// NewService creates a new stock valuation service.
func NewService(repo Repository, txManager tx.Manager, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		clock:     clk,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// IncreaseInput describes a stock receipt.
type IncreaseInput struct {
	ItemID          id.ID
	Quantity        types.Quantity
	UnitImportPrice types.Money
	Reference       Reference
	Kind            MovementKind // defaults to import
	ActorID         *id.ID
	Note            *string
}

// DecreaseInput describes a stock issue.
type DecreaseInput struct {
	ItemID    id.ID
	Quantity  types.Quantity
	Reference Reference
	Kind      MovementKind // defaults to sale
	ActorID   *id.ID
	Note      *string
}

// IncreaseStock receives quantity units at the given batch price and
// blends the batch into the moving average:
//
//	newAvg = (oldQty*oldAvg + qty*price) / (oldQty + qty)
//
// When the resulting quantity is not positive (receipt into an oversold
// position that stays non-positive) the previous average is kept
// unchanged. That guard exists to avoid the zero division; blending
// semantics for non-positive stock are undefined and intentionally left
// as is pending a product decision.
//
// The ledger row records the batch import price, not the new average.
func (s *Service) IncreaseStock(ctx context.Context, in IncreaseInput) (*Record, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", in.Quantity.Int64())
	}
	if in.UnitImportPrice.IsNegative() {
		return nil, apperror.NewValidation("unit import price cannot be negative").
			WithDetail("unit_import_price", in.UnitImportPrice.String())
	}
	if in.Reference == nil {
		return nil, apperror.NewValidation("reference entity is required")
	}
	if in.Kind == "" {
		in.Kind = KindImport
	}
	if !ValidKind(in.Kind) {
		return nil, apperror.NewValidation("unknown movement kind").
			WithDetail("kind", string(in.Kind))
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var rec *Record
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err = s.repo.GetRecordForUpdate(ctx, in.ItemID)
		if err != nil {
			return fmt.Errorf("lock stock record: %w", err)
		}

		oldQty := rec.Quantity
		newQty := oldQty + in.Quantity

		if newQty.IsPositive() {
			// (oldQty*oldAvg + qty*price) / newQty
			blended := oldQty.Decimal().Mul(rec.AverageCost).
				Add(in.Quantity.Decimal().Mul(in.UnitImportPrice)).
				Div(newQty.Decimal())
			rec.AverageCost = blended
		}

		now := s.clock.Now()
		rec.Quantity = newQty
		rec.LastRestockAt = &now
		rec.UpdatedAt = now

		if err := s.repo.UpdateRecord(ctx, rec); err != nil {
			return fmt.Errorf("update stock record: %w", err)
		}

		mv := &Movement{
			ID:               id.New(),
			ItemID:           in.ItemID,
			ActorID:          in.ActorID,
			Kind:             in.Kind,
			QuantityDelta:    in.Quantity,
			QuantitySnapshot: newQty,
			UnitCost:         in.UnitImportPrice,
			ReferenceType:    in.Reference.ReferenceType(),
			ReferenceID:      in.Reference.ReferenceID(),
			Note:             in.Note,
			CreatedAt:        now,
		}
		if err := s.repo.AppendMovement(ctx, mv); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock increased",
		"item_id", in.ItemID,
		"quantity", in.Quantity.Int64(),
		"new_quantity", rec.Quantity.Int64(),
		"average_cost", rec.AverageCost.String(),
	)

	return rec, nil
}

// DecreaseStock issues quantity units at the current average cost.
// The row lock serializes concurrent issues per item: the second caller
// sees the updated quantity, so this path can never drive the position
// below zero. The average cost is never modified by an issue.
func (s *Service) DecreaseStock(ctx context.Context, in DecreaseInput) (*Record, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", in.Quantity.Int64())
	}
	if in.Reference == nil {
		return nil, apperror.NewValidation("reference entity is required")
	}
	if in.Kind == "" {
		in.Kind = KindSale
	}
	if !ValidKind(in.Kind) {
		return nil, apperror.NewValidation("unknown movement kind").
			WithDetail("kind", string(in.Kind))
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var rec *Record
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock against a defined baseline even for never-moved items:
		// the zero record is created so the shortage error has a row to
		// report against.
		rec, err = s.repo.GetRecordForUpdate(ctx, in.ItemID)
		if err != nil {
			return fmt.Errorf("lock stock record: %w", err)
		}

		if rec.Quantity < in.Quantity {
			return apperror.NewInsufficientStock(
				in.ItemID.String(),
				in.Quantity.Float64(),
				rec.Quantity.Float64(),
			)
		}

		newQty := rec.Quantity - in.Quantity
		now := s.clock.Now()
		rec.Quantity = newQty
		rec.UpdatedAt = now

		if err := s.repo.UpdateRecord(ctx, rec); err != nil {
			return fmt.Errorf("update stock record: %w", err)
		}

		mv := &Movement{
			ID:               id.New(),
			ItemID:           in.ItemID,
			ActorID:          in.ActorID,
			Kind:             in.Kind,
			QuantityDelta:    in.Quantity.Neg(),
			QuantitySnapshot: newQty,
			UnitCost:         rec.AverageCost,
			ReferenceType:    in.Reference.ReferenceType(),
			ReferenceID:      in.Reference.ReferenceID(),
			Note:             in.Note,
			CreatedAt:        now,
		}
		if err := s.repo.AppendMovement(ctx, mv); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock decreased",
		"item_id", in.ItemID,
		"quantity", in.Quantity.Int64(),
		"new_quantity", rec.Quantity.Int64(),
	)

	return rec, nil
}

// GetRecord returns the current position for an item.
func (s *Service) GetRecord(ctx context.Context, itemID id.ID) (*Record, error) {
	return s.repo.GetRecord(ctx, itemID)
}

// GetMovementHistory returns ledger history for an item.
func (s *Service) GetMovementHistory(ctx context.Context, itemID id.ID, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, itemID, filter)
}

// ListLowStock returns positions at or below the threshold.
func (s *Service) ListLowStock(ctx context.Context, threshold types.Quantity) ([]Record, error) {
	return s.repo.ListRecordsBelow(ctx, threshold)
}

// VerifyLedger checks that the ledger deltas replay to the current
// position. A mismatch means an out-of-band write skipped the ledger.
func (s *Service) VerifyLedger(ctx context.Context, itemID id.ID) error {
	rec, err := s.repo.GetRecord(ctx, itemID)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}

	sum, err := s.repo.SumMovementDeltas(ctx, itemID)
	if err != nil {
		return fmt.Errorf("sum deltas: %w", err)
	}

	if sum != rec.Quantity {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "stock ledger does not replay to current quantity").
			WithDetail("item_id", itemID.String()).
			WithDetail("ledger_sum", sum.Int64()).
			WithDetail("quantity", rec.Quantity.Int64())
	}
	return nil
}
