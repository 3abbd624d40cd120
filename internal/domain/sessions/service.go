package sessions

import (
	"context"
	"fmt"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/clock"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/internal/core/types"
	"cueclub/internal/domain/catalogs/item"
	"cueclub/internal/domain/catalogs/tabletype"
	"cueclub/internal/domain/discount"
	"cueclub/internal/domain/inventory"
	"cueclub/internal/domain/tariff"
	"cueclub/pkg/logger"
	"cueclub/pkg/numerator"
)

// ReceiptPrefix for session receipt numbers (RCP-2025-00042).
const ReceiptPrefix = "RCP"

// Receipts are fiscal paper: numbers must be strictly sequential,
// gaps are a bookkeeping question.
var receiptNumbering = &numerator.Options{Strategy: numerator.StrategyStrict}

// Service provides the session lifecycle.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	tables    tabletype.Repository
	items     item.Repository
	stock     *inventory.Service
	resolver  *tariff.Resolver
	discounts *discount.Service
	numerator *numerator.Service
	txManager tx.Manager // Optional. If nil, obtained from context.
	clock     clock.Clock
}

// NewService creates a session service.
func NewService(
	repo Repository,
	tables tabletype.Repository,
	items item.Repository,
	stock *inventory.Service,
	resolver *tariff.Resolver,
	discounts *discount.Service,
	num *numerator.Service,
	txManager tx.Manager,
	clk clock.Clock,
) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		repo:      repo,
		tables:    tables,
		items:     items,
		stock:     stock,
		resolver:  resolver,
		discounts: discounts,
		numerator: num,
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

// location returns the club's wall clock; UTC outside a tenant context.
func (s *Service) location(ctx context.Context) *time.Location {
	if club := tenant.GetClub(ctx); club != nil {
		return club.Location()
	}
	return time.UTC
}

// OpenInput describes opening a table.
type OpenInput struct {
	TableID  id.ID
	OpenedBy *id.ID
	Note     *string
}

// Open starts a session on a free table. The rate in effect right now
// is frozen into the session as the pricing fallback.
func (s *Service) Open(ctx context.Context, in OpenInput) (*Session, error) {
	tbl, err := s.tables.GetTableByID(ctx, in.TableID)
	if err != nil {
		return nil, err
	}
	if !tbl.Active {
		return nil, apperror.NewValidation("table is not in service").
			WithDetail("table_id", tbl.ID)
	}

	if existing, err := s.repo.GetActiveByTable(ctx, in.TableID); err == nil && existing != nil {
		return nil, apperror.NewTableOccupied(in.TableID)
	} else if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	tt, err := s.tables.GetByID(ctx, tbl.TableTypeID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rate, ok, err := s.resolver.RateAt(ctx, tt.ID, now, s.location(ctx))
	if err != nil {
		return nil, fmt.Errorf("resolve opening rate: %w", err)
	}
	if !ok {
		rate = tt.DefaultRatePerHour
	}

	sess := NewSession(tbl.ID, tt.ID, now, rate)
	sess.OpenedBy = in.OpenedBy
	sess.Note = in.Note

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Re-check under the transaction so two clerks cannot open the
		// same table in a race.
		if existing, err := s.repo.GetActiveByTable(ctx, tbl.ID); err == nil && existing != nil {
			return apperror.NewTableOccupied(tbl.ID)
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		return s.repo.Create(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "session opened",
		"id", sess.ID, "table_id", tbl.ID, "rate", sess.FrozenRatePerHour)
	return sess, nil
}

// AddItemInput describes adding a catalog item to a session.
type AddItemInput struct {
	SessionID id.ID
	ItemID    id.ID
	Quantity  types.Quantity
	ActorID   *id.ID
}

// AddItem puts a bar/kitchen item on the session tab. Stock-tracked
// items are issued from inventory in the same transaction; the current
// average cost is recorded on the line as the return basis.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*OrderItem, error) {
	sess, err := s.repo.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.CanModify(); err != nil {
		return nil, err
	}

	it, err := s.items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !it.Active {
		return nil, apperror.NewValidation("item is not for sale").
			WithDetail("item_id", it.ID)
	}

	oi := &OrderItem{
		ID:        id.New(),
		SessionID: sess.ID,
		ItemID:    it.ID,
		Name:      it.Name,
		Quantity:  in.Quantity,
		UnitPrice: it.Price,
		Total:     it.Price.Mul(in.Quantity.Decimal()),
		UnitCost:  types.Zero(),
		CreatedAt: s.clock.Now(),
	}
	if err := oi.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if it.TracksStock {
			rec, err := s.stock.DecreaseStock(ctx, inventory.DecreaseInput{
				ItemID:    it.ID,
				Quantity:  in.Quantity,
				Reference: oi,
				Kind:      inventory.KindSale,
				ActorID:   in.ActorID,
			})
			if err != nil {
				return err
			}
			oi.UnitCost = rec.AverageCost
		}
		return s.repo.AddItem(ctx, oi)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order item added",
		"session_id", sess.ID, "item_id", it.ID, "quantity", in.Quantity)
	return oi, nil
}

// RemoveItem takes a line off the tab. Stock-tracked items go back to
// inventory at the cost basis recorded on the line, so the return does
// not distort the moving average.
func (s *Service) RemoveItem(ctx context.Context, sessionID, orderItemID id.ID, actorID *id.ID) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.CanModify(); err != nil {
		return err
	}

	oi, err := s.repo.GetItem(ctx, orderItemID)
	if err != nil {
		return err
	}
	if oi.SessionID != sess.ID {
		return apperror.NewNotFound("order item", orderItemID)
	}

	it, err := s.items.GetByID(ctx, oi.ItemID)
	if err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.RemoveItem(ctx, oi.ID); err != nil {
			return err
		}
		if it.TracksStock {
			_, err := s.stock.IncreaseStock(ctx, inventory.IncreaseInput{
				ItemID:          it.ID,
				Quantity:        oi.Quantity,
				UnitImportPrice: oi.UnitCost,
				Reference:       oi,
				Kind:            inventory.KindReturn,
				ActorID:         actorID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "order item removed",
		"session_id", sess.ID, "order_item_id", oi.ID)
	return nil
}

// RequestEnd marks the moment the guest asked for the bill. Play time
// stops accruing; items are frozen. Idempotent on pending_end.
func (s *Service) RequestEnd(ctx context.Context, sessionID id.ID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusPendingEnd {
		return sess, nil
	}
	if sess.Status != StatusActive {
		return nil, apperror.NewSessionClosed(sess.ID)
	}

	now := s.clock.Now()
	sess.Status = StatusPendingEnd
	sess.EndAt = &now

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, sess)
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "session end requested", "id", sess.ID)
	return sess, nil
}

// CloseInput describes closing a session into a receipt.
type CloseInput struct {
	SessionID    id.ID
	DiscountCode *string
}

// Close prices the session: play minutes are billed against the rate
// windows with the frozen rate as fallback, order items are summed and
// the optional discount code is resolved and redeemed. The receipt
// number is issued strictly sequentially.
func (s *Service) Close(ctx context.Context, in CloseInput) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.CanClose(); err != nil {
		return nil, err
	}

	endAt := s.clock.Now()
	if sess.EndAt != nil {
		endAt = *sess.EndAt
	}

	minutes := int(endAt.Sub(sess.StartAt) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	timeCost, err := s.resolver.CalculateSessionCost(
		ctx, sess.TableTypeID, sess.StartAt, endAt, sess.FrozenRatePerHour, s.location(ctx))
	if err != nil {
		return nil, fmt.Errorf("price play time: %w", err)
	}

	items, err := s.repo.ListItems(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	itemsTotal := types.Zero()
	for i := range items {
		itemsTotal = itemsTotal.Add(items[i].Total)
	}

	total := timeCost.Add(itemsTotal)

	var disc *discount.Discount
	discountAmount := types.Zero()
	if in.DiscountCode != nil && *in.DiscountCode != "" {
		tt, err := s.tables.GetByID(ctx, sess.TableTypeID)
		if err != nil {
			return nil, err
		}
		facts := discount.Facts{
			PlayMinutes: int64(minutes),
			TimeCost:    timeCost,
			ItemsTotal:  itemsTotal,
			Total:       total,
			Weekday:     sess.StartAt.In(s.location(ctx)).Weekday(),
			TableType:   tt.Name,
		}
		disc, discountAmount, err = s.discounts.Resolve(ctx, *in.DiscountCode, endAt, facts)
		if err != nil {
			return nil, err
		}
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(ReceiptPrefix), receiptNumbering, endAt)
	if err != nil {
		return nil, fmt.Errorf("generate receipt number: %w", err)
	}

	sess.Status = StatusClosed
	sess.ReceiptNumber = number
	sess.EndAt = &endAt
	sess.PlayMinutes = minutes
	sess.TimeCost = timeCost
	sess.ItemsTotal = itemsTotal
	sess.DiscountAmount = discountAmount
	sess.Total = total.Sub(discountAmount)
	if disc != nil {
		sess.DiscountCode = &disc.Code
		sess.DiscountID = &disc.ID
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if disc != nil {
			if err := s.discounts.Redeem(ctx, disc.ID); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "session closed",
		"id", sess.ID, "receipt", sess.ReceiptNumber,
		"minutes", sess.PlayMinutes, "total", sess.Total)
	return sess, nil
}

// Pay settles a closed session.
func (s *Service) Pay(ctx context.Context, sessionID id.ID, method PaymentMethod) (*Session, error) {
	if method != PaymentCash && method != PaymentCard {
		return nil, apperror.NewValidation("invalid payment method").
			WithDetail("field", "method").
			WithDetail("value", string(method))
	}

	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusClosed {
		if sess.Status == StatusPaid {
			return nil, apperror.NewConflict("session is already paid").
				WithDetail("session_id", sess.ID)
		}
		return nil, apperror.NewBusinessRule("SESSION_NOT_CLOSED", "session must be closed before payment").
			WithDetail("session_id", sess.ID)
	}

	now := s.clock.Now()
	sess.Status = StatusPaid
	sess.PaymentMethod = &method
	sess.PaidAt = &now

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, sess)
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "session paid",
		"id", sess.ID, "method", method, "total", sess.Total)
	return sess, nil
}

// GetByID returns a session with its order items.
func (s *Service) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	sess.Items = items
	return sess, nil
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Session, error) {
	return s.repo.List(ctx, filter)
}
