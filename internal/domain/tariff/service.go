package tariff

import (
	"context"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/pkg/logger"
)

// CacheInvalidator drops cached window lists after mutations.
// Implemented by the redis catalog cache; nil disables invalidation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tableTypeID id.ID) error
}

// Service provides admin CRUD over rate windows.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	cache     CacheInvalidator
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a rate window service.
func NewService(repo Repository, cache CacheInvalidator, txManager tx.Manager) *Service {
	return &Service{repo: repo, cache: cache, txManager: txManager}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create adds a rate window.
func (s *Service) Create(ctx context.Context, w *RateWindow) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(w.ID) {
		w.ID = id.New()
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, w)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, w.TableTypeID)
	logger.Info(ctx, "rate window created",
		"id", w.ID, "table_type_id", w.TableTypeID, "name", w.Name)
	return nil
}

// Update updates a rate window.
func (s *Service) Update(ctx context.Context, w *RateWindow) error {
	if err := w.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, w)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, w.TableTypeID)
	return nil
}

// Delete removes a rate window.
func (s *Service) Delete(ctx context.Context, windowID id.ID) error {
	w, err := s.repo.GetByID(ctx, windowID)
	if err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, windowID)
	}); err != nil {
		return err
	}

	s.invalidate(ctx, w.TableTypeID)
	logger.Info(ctx, "rate window deleted", "id", windowID)
	return nil
}

// GetByID returns a rate window.
func (s *Service) GetByID(ctx context.Context, windowID id.ID) (*RateWindow, error) {
	return s.repo.GetByID(ctx, windowID)
}

// ListByTableType returns all windows of a table type, active or not.
func (s *Service) ListByTableType(ctx context.Context, tableTypeID id.ID) ([]RateWindow, error) {
	return s.repo.ListByTableType(ctx, tableTypeID)
}

// invalidate is best-effort: a stale cache entry expires on its own TTL.
func (s *Service) invalidate(ctx context.Context, tableTypeID id.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tableTypeID); err != nil {
		logger.Warn(ctx, "rate window cache invalidation failed",
			"table_type_id", tableTypeID, "error", err)
	}
}
