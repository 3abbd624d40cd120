// Package auth_repo persists staff accounts and refresh tokens.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/auth"
	"cueclub/internal/infrastructure/storage/postgres"
)

const staffTable = "staff"

var staffColumns = []string{
	"id", "email", "password_hash", "name", "role",
	"is_active", "last_login_at", "failed_login_attempts", "locked_until",
	"created_at", "updated_at",
}

var _ auth.StaffRepository = (*StaffRepo)(nil)

// StaffRepo implements auth.StaffRepository.
type StaffRepo struct {
	builder squirrel.StatementBuilderType
}

// NewStaffRepo creates a staff repository.
func NewStaffRepo() *StaffRepo {
	return &StaffRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StaffRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// Create inserts a staff account.
func (r *StaffRepo) Create(ctx context.Context, st *auth.Staff) error {
	q := r.builder.Insert(staffTable).
		Columns("id", "email", "password_hash", "name", "role", "is_active").
		Values(st.ID, st.Email, st.PasswordHash, st.Name, st.Role, st.IsActive)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

// GetByID returns a staff account.
func (r *StaffRepo) GetByID(ctx context.Context, staffID id.ID) (*auth.Staff, error) {
	q := r.builder.Select(staffColumns...).
		From(staffTable).
		Where(squirrel.Eq{"id": staffID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var st auth.Staff
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &st, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("staff", staffID.String())
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return &st, nil
}

// GetByEmail returns a staff account by email, case-insensitively.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (*auth.Staff, error) {
	q := r.builder.Select(staffColumns...).
		From(staffTable).
		Where(squirrel.Expr("lower(email) = lower(?)", email)).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var st auth.Staff
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &st, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("staff", email)
		}
		return nil, fmt.Errorf("get staff by email: %w", err)
	}
	return &st, nil
}

// Update rewrites a staff account.
func (r *StaffRepo) Update(ctx context.Context, st *auth.Staff) error {
	q := r.builder.Update(staffTable).
		Set("email", st.Email).
		Set("password_hash", st.PasswordHash).
		Set("name", st.Name).
		Set("role", st.Role).
		Set("is_active", st.IsActive).
		Set("last_login_at", st.LastLoginAt).
		Set("failed_login_attempts", st.FailedLoginAttempts).
		Set("locked_until", st.LockedUntil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": st.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("staff", st.ID.String())
	}
	return nil
}

// List returns staff accounts with the total count for paging.
func (r *StaffRepo) List(ctx context.Context, filter auth.StaffFilter) ([]auth.Staff, int, error) {
	base := r.builder.Select().From(staffTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		base = base.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	if filter.IsActive != nil {
		base = base.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.Role != nil {
		base = base.Where(squirrel.Eq{"role": *filter.Role})
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)

	countSQL, countArgs, err := base.Columns("count(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}

	q := base.Columns(staffColumns...).OrderBy("name")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var out []auth.Staff
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select staff: %w", err)
	}
	return out, total, nil
}

// Exists reports whether a staff account with the email exists.
func (r *StaffRepo) Exists(ctx context.Context, email string) (bool, error) {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	var exists bool
	err := querier.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff WHERE lower(email) = lower($1))`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check staff exists: %w", err)
	}
	return exists, nil
}
