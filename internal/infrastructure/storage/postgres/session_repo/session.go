// Package session_repo persists sessions and their order items.
package session_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/sessions"
	"cueclub/internal/infrastructure/storage/postgres"
)

const (
	sessionsTable     = "sessions"
	sessionItemsTable = "session_items"
)

var sessionColumns = []string{
	"id", "receipt_number", "table_id", "table_type_id", "status",
	"start_at", "end_at", "frozen_rate_per_hour",
	"play_minutes", "time_cost", "items_total",
	"discount_code", "discount_id", "discount_amount", "total",
	"payment_method", "paid_at", "opened_by", "note",
	"created_at", "updated_at",
}

var itemColumns = []string{
	"id", "session_id", "item_id", "name", "quantity",
	"unit_price", "total", "unit_cost", "created_at",
}

var _ sessions.Repository = (*Repo)(nil)

// Repo implements sessions.Repository.
type Repo struct {
	builder squirrel.StatementBuilderType
}

// NewRepo creates a session repository.
func NewRepo() *Repo {
	return &Repo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts a session.
func (r *Repo) Create(ctx context.Context, s *sessions.Session) error {
	q := r.builder.Insert(sessionsTable).
		Columns("id", "receipt_number", "table_id", "table_type_id", "status",
			"start_at", "end_at", "frozen_rate_per_hour",
			"play_minutes", "time_cost", "items_total",
			"discount_code", "discount_id", "discount_amount", "total",
			"payment_method", "paid_at", "opened_by", "note").
		Values(s.ID, s.ReceiptNumber, s.TableID, s.TableTypeID, s.Status,
			s.StartAt, s.EndAt, s.FrozenRatePerHour,
			s.PlayMinutes, s.TimeCost, s.ItemsTotal,
			s.DiscountCode, s.DiscountID, s.DiscountAmount, s.Total,
			s.PaymentMethod, s.PaidAt, s.OpenedBy, s.Note)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update rewrites the mutable part of a session.
func (r *Repo) Update(ctx context.Context, s *sessions.Session) error {
	q := r.builder.Update(sessionsTable).
		Set("receipt_number", s.ReceiptNumber).
		Set("status", s.Status).
		Set("end_at", s.EndAt).
		Set("play_minutes", s.PlayMinutes).
		Set("time_cost", s.TimeCost).
		Set("items_total", s.ItemsTotal).
		Set("discount_code", s.DiscountCode).
		Set("discount_id", s.DiscountID).
		Set("discount_amount", s.DiscountAmount).
		Set("total", s.Total).
		Set("payment_method", s.PaymentMethod).
		Set("paid_at", s.PaidAt).
		Set("note", s.Note).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": s.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("session", s.ID.String())
	}
	return nil
}

// GetByID returns a session without its items. Callers that need the
// items load them via ListItems.
func (r *Repo) GetByID(ctx context.Context, sessionID id.ID) (*sessions.Session, error) {
	q := r.builder.Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"id": sessionID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sessions.Session
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("session", sessionID.String())
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// GetActiveByTable returns the open session on a table. A partial
// unique index on (table_id) WHERE status IN ('active','pending_end')
// guarantees at most one row.
func (r *Repo) GetActiveByTable(ctx context.Context, tableID id.ID) (*sessions.Session, error) {
	q := r.builder.Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"table_id": tableID}).
		Where(squirrel.Eq{"status": []sessions.Status{sessions.StatusActive, sessions.StatusPendingEnd}}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sessions.Session
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("active session", tableID.String())
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return &s, nil
}

// List returns sessions matching the filter, newest first.
func (r *Repo) List(ctx context.Context, filter sessions.ListFilter) ([]sessions.Session, error) {
	q := r.builder.Select(sessionColumns...).
		From(sessionsTable).
		OrderBy("start_at DESC", "id DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.TableID != nil {
		q = q.Where(squirrel.Eq{"table_id": *filter.TableID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"start_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"start_at": *filter.ToDate})
	}
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

	var out []sessions.Session
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	return out, nil
}

// AddItem inserts an order item.
func (r *Repo) AddItem(ctx context.Context, oi *sessions.OrderItem) error {
	q := r.builder.Insert(sessionItemsTable).
		Columns("id", "session_id", "item_id", "name", "quantity",
			"unit_price", "total", "unit_cost").
		Values(oi.ID, oi.SessionID, oi.ItemID, oi.Name, oi.Quantity,
			oi.UnitPrice, oi.Total, oi.UnitCost)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// GetItem returns an order item.
func (r *Repo) GetItem(ctx context.Context, orderItemID id.ID) (*sessions.OrderItem, error) {
	q := r.builder.Select(itemColumns...).
		From(sessionItemsTable).
		Where(squirrel.Eq{"id": orderItemID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var oi sessions.OrderItem
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &oi, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order item", orderItemID.String())
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	return &oi, nil
}

// RemoveItem deletes an order item.
func (r *Repo) RemoveItem(ctx context.Context, orderItemID id.ID) error {
	q := r.builder.Delete(sessionItemsTable).
		Where(squirrel.Eq{"id": orderItemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order item", orderItemID.String())
	}
	return nil
}

// ListItems returns a session's order items in insertion order.
func (r *Repo) ListItems(ctx context.Context, sessionID id.ID) ([]sessions.OrderItem, error) {
	q := r.builder.Select(itemColumns...).
		From(sessionItemsTable).
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []sessions.OrderItem
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return out, nil
}
