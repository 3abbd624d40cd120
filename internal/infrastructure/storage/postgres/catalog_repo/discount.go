package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/discount"
	"cueclub/internal/infrastructure/storage/postgres"
)

const discountsTable = "cat_discounts"

var discountColumns = []string{
	"id", "code", "name", "type", "value", "valid_from", "valid_until",
	"usage_limit", "used_count", "eligibility", "active",
	"created_at", "updated_at",
}

var _ discount.Repository = (*DiscountRepo)(nil)

// DiscountRepo implements discount.Repository.
type DiscountRepo struct {
	builder squirrel.StatementBuilderType
}

// NewDiscountRepo creates a discount repository.
func NewDiscountRepo() *DiscountRepo {
	return &DiscountRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *DiscountRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts a discount code.
func (r *DiscountRepo) Create(ctx context.Context, d *discount.Discount) error {
	q := r.builder.Insert(discountsTable).
		Columns("id", "code", "name", "type", "value", "valid_from", "valid_until",
			"usage_limit", "used_count", "eligibility", "active").
		Values(d.ID, d.Code, d.Name, d.Type, d.Value, d.ValidFrom, d.ValidUntil,
			d.UsageLimit, d.UsedCount, d.Eligibility, d.Active)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert discount: %w", err)
	}
	return nil
}

// Update updates a discount code. used_count is owned by IncrementUsage
// and deliberately not written here.
func (r *DiscountRepo) Update(ctx context.Context, d *discount.Discount) error {
	q := r.builder.Update(discountsTable).
		Set("code", d.Code).
		Set("name", d.Name).
		Set("type", d.Type).
		Set("value", d.Value).
		Set("valid_from", d.ValidFrom).
		Set("valid_until", d.ValidUntil).
		Set("usage_limit", d.UsageLimit).
		Set("eligibility", d.Eligibility).
		Set("active", d.Active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": d.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update discount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("discount", d.ID.String())
	}
	return nil
}

// GetByID returns a discount.
func (r *DiscountRepo) GetByID(ctx context.Context, discountID id.ID) (*discount.Discount, error) {
	q := r.builder.Select(discountColumns...).
		From(discountsTable).
		Where(squirrel.Eq{"id": discountID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d discount.Discount
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("discount", discountID.String())
		}
		return nil, fmt.Errorf("get discount: %w", err)
	}
	return &d, nil
}

// GetByCode returns a discount by its code.
func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (*discount.Discount, error) {
	q := r.builder.Select(discountColumns...).
		From(discountsTable).
		Where(squirrel.Eq{"code": code}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var d discount.Discount
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &d, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("discount", code)
		}
		return nil, fmt.Errorf("get discount by code: %w", err)
	}
	return &d, nil
}

// List returns discount codes.
func (r *DiscountRepo) List(ctx context.Context, includeInactive bool) ([]discount.Discount, error) {
	q := r.builder.Select(discountColumns...).
		From(discountsTable).
		OrderBy("code")

	if !includeInactive {
		q = q.Where(squirrel.Eq{"active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []discount.Discount
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select discounts: %w", err)
	}
	return out, nil
}

// IncrementUsage atomically bumps used_count while it is under the
// limit. The guarded UPDATE makes the last use race-safe: only one of
// two concurrent receipts sees RowsAffected() == 1.
func (r *DiscountRepo) IncrementUsage(ctx context.Context, discountID id.ID) (bool, error) {
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, `
		UPDATE cat_discounts
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1
		  AND (usage_limit = 0 OR used_count < usage_limit)
	`, discountID)
	if err != nil {
		return false, fmt.Errorf("increment usage: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
