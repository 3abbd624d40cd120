package item

import (
	"context"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/pkg/logger"
)

// Service provides business operations for the item catalog.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates an item catalog service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create adds a catalog item, enforcing SKU uniqueness.
func (s *Service) Create(ctx context.Context, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(it.ID) {
		it.ID = id.New()
	}

	if it.SKU != nil && *it.SKU != "" {
		if existing, err := s.repo.GetBySKU(ctx, *it.SKU); err == nil && existing != nil {
			return apperror.NewDuplicate("item", "sku", *it.SKU)
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, it)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "item created", "id", it.ID, "name", it.Name)
	return nil
}

// Update updates a catalog item.
func (s *Service) Update(ctx context.Context, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}

	if it.SKU != nil && *it.SKU != "" {
		if existing, err := s.repo.GetBySKU(ctx, *it.SKU); err == nil && existing != nil && existing.ID != it.ID {
			return apperror.NewDuplicate("item", "sku", *it.SKU)
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, it)
	})
}

// GetByID returns an item by id.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// List returns catalog items matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	return s.repo.List(ctx, filter)
}

// Deactivate hides an item from sale without deleting its history.
func (s *Service) Deactivate(ctx context.Context, itemID id.ID) error {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if !it.Active {
		return nil
	}
	it.Active = false

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, it)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "item deactivated", "id", it.ID)
	return nil
}
