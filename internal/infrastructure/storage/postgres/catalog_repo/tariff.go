package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/tariff"
	"cueclub/internal/infrastructure/storage/postgres"
)

const rateWindowsTable = "rate_windows"

var rateWindowColumns = []string{
	"id", "table_type_id", "name", "price_per_hour", "days",
	"start_time", "end_time", "priority", "active",
	"created_at", "updated_at",
}

var _ tariff.Repository = (*RateWindowRepo)(nil)

// RateWindowRepo implements tariff.Repository.
type RateWindowRepo struct {
	builder squirrel.StatementBuilderType
}

// NewRateWindowRepo creates a rate window repository.
func NewRateWindowRepo() *RateWindowRepo {
	return &RateWindowRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *RateWindowRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// ListActiveByTableType returns active windows in resolver order:
// priority descending, then id ascending.
func (r *RateWindowRepo) ListActiveByTableType(ctx context.Context, tableTypeID id.ID) ([]tariff.RateWindow, error) {
	q := r.builder.Select(rateWindowColumns...).
		From(rateWindowsTable).
		Where(squirrel.Eq{"table_type_id": tableTypeID, "active": true}).
		OrderBy("priority DESC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []tariff.RateWindow
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select active rate windows: %w", err)
	}
	return out, nil
}

// GetByID returns a rate window.
func (r *RateWindowRepo) GetByID(ctx context.Context, windowID id.ID) (*tariff.RateWindow, error) {
	q := r.builder.Select(rateWindowColumns...).
		From(rateWindowsTable).
		Where(squirrel.Eq{"id": windowID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var w tariff.RateWindow
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &w, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("rate window", windowID.String())
		}
		return nil, fmt.Errorf("get rate window: %w", err)
	}
	return &w, nil
}

// ListByTableType returns every window of a table type, active or not.
// Admin listing order matches the resolver's so the UI shows windows in
// the order they take effect.
func (r *RateWindowRepo) ListByTableType(ctx context.Context, tableTypeID id.ID) ([]tariff.RateWindow, error) {
	q := r.builder.Select(rateWindowColumns...).
		From(rateWindowsTable).
		Where(squirrel.Eq{"table_type_id": tableTypeID}).
		OrderBy("priority DESC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []tariff.RateWindow
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select rate windows: %w", err)
	}
	return out, nil
}

// Create inserts a rate window.
func (r *RateWindowRepo) Create(ctx context.Context, w *tariff.RateWindow) error {
	q := r.builder.Insert(rateWindowsTable).
		Columns("id", "table_type_id", "name", "price_per_hour", "days",
			"start_time", "end_time", "priority", "active").
		Values(w.ID, w.TableTypeID, w.Name, w.PricePerHour, w.Days,
			w.StartTime, w.EndTime, w.Priority, w.Active)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert rate window: %w", err)
	}
	return nil
}

// Update updates a rate window.
func (r *RateWindowRepo) Update(ctx context.Context, w *tariff.RateWindow) error {
	q := r.builder.Update(rateWindowsTable).
		Set("name", w.Name).
		Set("price_per_hour", w.PricePerHour).
		Set("days", w.Days).
		Set("start_time", w.StartTime).
		Set("end_time", w.EndTime).
		Set("priority", w.Priority).
		Set("active", w.Active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": w.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update rate window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("rate window", w.ID.String())
	}
	return nil
}

// Delete removes a rate window.
func (r *RateWindowRepo) Delete(ctx context.Context, windowID id.ID) error {
	q := r.builder.Delete(rateWindowsTable).
		Where(squirrel.Eq{"id": windowID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete rate window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("rate window", windowID.String())
	}
	return nil
}
