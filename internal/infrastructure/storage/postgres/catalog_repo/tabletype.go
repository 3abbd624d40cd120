// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories (table types, items, discounts, rate windows).
// In Database-per-Tenant architecture, TxManager is obtained from context.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/catalogs/tabletype"
	"cueclub/internal/infrastructure/storage/postgres"
)

const (
	tableTypesTable = "cat_table_types"
	tablesTable     = "cat_tables"
)

var tableTypeColumns = []string{
	"id", "name", "description", "default_rate_per_hour", "active",
	"created_at", "updated_at",
}

var tableColumns = []string{
	"id", "table_type_id", "number", "label", "active", "created_at", "updated_at",
}

var _ tabletype.Repository = (*TableTypeRepo)(nil)

// TableTypeRepo implements tabletype.Repository.
type TableTypeRepo struct {
	builder squirrel.StatementBuilderType
}

// NewTableTypeRepo creates a table catalog repository.
func NewTableTypeRepo() *TableTypeRepo {
	return &TableTypeRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *TableTypeRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts a table type.
func (r *TableTypeRepo) Create(ctx context.Context, tt *tabletype.TableType) error {
	q := r.builder.Insert(tableTypesTable).
		Columns("id", "name", "description", "default_rate_per_hour", "active").
		Values(tt.ID, tt.Name, tt.Description, tt.DefaultRatePerHour, tt.Active)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert table type: %w", err)
	}
	return nil
}

// Update updates a table type.
func (r *TableTypeRepo) Update(ctx context.Context, tt *tabletype.TableType) error {
	q := r.builder.Update(tableTypesTable).
		Set("name", tt.Name).
		Set("description", tt.Description).
		Set("default_rate_per_hour", tt.DefaultRatePerHour).
		Set("active", tt.Active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": tt.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update table type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("table type", tt.ID.String())
	}
	return nil
}

// GetByID returns a table type.
func (r *TableTypeRepo) GetByID(ctx context.Context, ttID id.ID) (*tabletype.TableType, error) {
	q := r.builder.Select(tableTypeColumns...).
		From(tableTypesTable).
		Where(squirrel.Eq{"id": ttID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var tt tabletype.TableType
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &tt, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("table type", ttID.String())
		}
		return nil, fmt.Errorf("get table type: %w", err)
	}
	return &tt, nil
}

// List returns table types.
func (r *TableTypeRepo) List(ctx context.Context, includeInactive bool) ([]tabletype.TableType, error) {
	q := r.builder.Select(tableTypeColumns...).
		From(tableTypesTable).
		OrderBy("name")

	if !includeInactive {
		q = q.Where(squirrel.Eq{"active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []tabletype.TableType
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select table types: %w", err)
	}
	return out, nil
}

// CreateTable inserts a physical table.
func (r *TableTypeRepo) CreateTable(ctx context.Context, tbl *tabletype.Table) error {
	q := r.builder.Insert(tablesTable).
		Columns("id", "table_type_id", "number", "label", "active").
		Values(tbl.ID, tbl.TableTypeID, tbl.Number, tbl.Label, tbl.Active)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	return nil
}

// UpdateTable updates a physical table.
func (r *TableTypeRepo) UpdateTable(ctx context.Context, tbl *tabletype.Table) error {
	q := r.builder.Update(tablesTable).
		Set("table_type_id", tbl.TableTypeID).
		Set("number", tbl.Number).
		Set("label", tbl.Label).
		Set("active", tbl.Active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": tbl.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("table", tbl.ID.String())
	}
	return nil
}

// GetTableByID returns a physical table.
func (r *TableTypeRepo) GetTableByID(ctx context.Context, tableID id.ID) (*tabletype.Table, error) {
	q := r.builder.Select(tableColumns...).
		From(tablesTable).
		Where(squirrel.Eq{"id": tableID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var tbl tabletype.Table
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &tbl, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("table", tableID.String())
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	return &tbl, nil
}

// ListTables returns tables, optionally filtered by type.
func (r *TableTypeRepo) ListTables(ctx context.Context, tableTypeID *id.ID) ([]tabletype.Table, error) {
	q := r.builder.Select(tableColumns...).
		From(tablesTable).
		OrderBy("number")

	if tableTypeID != nil {
		q = q.Where(squirrel.Eq{"table_type_id": *tableTypeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []tabletype.Table
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select tables: %w", err)
	}
	return out, nil
}
