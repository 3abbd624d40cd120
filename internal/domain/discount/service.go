package discount

import (
	"context"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/internal/core/types"
	"cueclub/pkg/logger"
)

// Service provides business operations for discount codes.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	repo      Repository
	rules     *RuleEngine
	txManager tx.Manager // Optional. If nil, obtained from context.
}

// NewService creates a discount service.
func NewService(repo Repository, rules *RuleEngine, txManager tx.Manager) *Service {
	return &Service{repo: repo, rules: rules, txManager: txManager}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create adds a discount code. The eligibility expression is compiled
// here so broken rules never reach a receipt.
func (s *Service) Create(ctx context.Context, d *Discount) error {
	if err := d.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(d.ID) {
		d.ID = id.New()
	}
	if d.Eligibility != nil && *d.Eligibility != "" {
		if err := s.rules.Compile(*d.Eligibility); err != nil {
			return err
		}
	}

	if existing, err := s.repo.GetByCode(ctx, d.Code); err == nil && existing != nil {
		return apperror.NewDuplicate("discount", "code", d.Code)
	} else if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, d)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "discount created", "id", d.ID, "code", d.Code)
	return nil
}

// Update updates a discount code.
func (s *Service) Update(ctx context.Context, d *Discount) error {
	if err := d.Validate(ctx); err != nil {
		return err
	}
	if d.Eligibility != nil && *d.Eligibility != "" {
		if err := s.rules.Compile(*d.Eligibility); err != nil {
			return err
		}
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, d)
	})
}

// GetByCode returns a discount by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Discount, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns discount codes.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Discount, error) {
	return s.repo.List(ctx, includeInactive)
}

// Resolve checks that the code is usable at instant t and eligible for
// the session facts, and returns it with the computed amount.
// Usage is not consumed here; Redeem does that inside the receipt
// transaction.
func (s *Service) Resolve(ctx context.Context, code string, at time.Time, facts Facts) (*Discount, types.Money, error) {
	d, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, types.Zero(), err
	}

	if err := d.UsableAt(at); err != nil {
		return nil, types.Zero(), err
	}

	if d.Eligibility != nil && *d.Eligibility != "" {
		ok, err := s.rules.Eligible(*d.Eligibility, facts)
		if err != nil {
			return nil, types.Zero(), err
		}
		if !ok {
			return nil, types.Zero(), apperror.NewDiscountNotUsable(code, "session does not qualify")
		}
	}

	return d, d.Amount(facts.Total), nil
}

// Redeem consumes one use of the code. Must run inside the receipt
// transaction so a rolled-back close does not burn a use.
func (s *Service) Redeem(ctx context.Context, discountID id.ID) error {
	ok, err := s.repo.IncrementUsage(ctx, discountID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewDiscountNotUsable("", "usage limit reached")
	}
	return nil
}
