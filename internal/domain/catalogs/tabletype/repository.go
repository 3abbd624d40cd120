package tabletype

import (
	"context"

	"cueclub/internal/core/id"
)

// Repository defines persistence for table types and tables.
type Repository interface {
	Create(ctx context.Context, tt *TableType) error
	Update(ctx context.Context, tt *TableType) error
	GetByID(ctx context.Context, ttID id.ID) (*TableType, error)
	List(ctx context.Context, includeInactive bool) ([]TableType, error)

	CreateTable(ctx context.Context, tbl *Table) error
	UpdateTable(ctx context.Context, tbl *Table) error
	GetTableByID(ctx context.Context, tableID id.ID) (*Table, error)
	ListTables(ctx context.Context, tableTypeID *id.ID) ([]Table, error)
}
