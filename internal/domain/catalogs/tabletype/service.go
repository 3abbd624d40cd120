package tabletype

import (
	"context"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/pkg/logger"
)

// Service provides business operations for the table catalog.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a table catalog service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// CreateType adds a new table type.
func (s *Service) CreateType(ctx context.Context, tt *TableType) error {
	if err := tt.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(tt.ID) {
		tt.ID = id.New()
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, tt)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "table type created", "id", tt.ID, "name", tt.Name)
	return nil
}

// UpdateType updates an existing table type.
func (s *Service) UpdateType(ctx context.Context, tt *TableType) error {
	if err := tt.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, tt)
	})
}

// GetType returns a table type by id.
func (s *Service) GetType(ctx context.Context, ttID id.ID) (*TableType, error) {
	return s.repo.GetByID(ctx, ttID)
}

// ListTypes returns table types, active-only by default.
func (s *Service) ListTypes(ctx context.Context, includeInactive bool) ([]TableType, error) {
	return s.repo.List(ctx, includeInactive)
}

// CreateTable adds a physical table, verifying its type exists.
func (s *Service) CreateTable(ctx context.Context, tbl *Table) error {
	if err := tbl.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(tbl.ID) {
		tbl.ID = id.New()
	}

	if _, err := s.repo.GetByID(ctx, tbl.TableTypeID); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateTable(ctx, tbl)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "table created", "id", tbl.ID, "number", tbl.Number)
	return nil
}

// UpdateTable updates a physical table.
func (s *Service) UpdateTable(ctx context.Context, tbl *Table) error {
	if err := tbl.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpdateTable(ctx, tbl)
	})
}

// GetTable returns a table by id.
func (s *Service) GetTable(ctx context.Context, tableID id.ID) (*Table, error) {
	return s.repo.GetTableByID(ctx, tableID)
}

// ListTables returns tables, optionally filtered by type.
func (s *Service) ListTables(ctx context.Context, tableTypeID *id.ID) ([]Table, error) {
	return s.repo.ListTables(ctx, tableTypeID)
}
