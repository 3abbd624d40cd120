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

const tokensTable = "staff_refresh_tokens"

var tokenColumns = []string{
	"id", "staff_id", "token_hash", "expires_at", "revoked_at", "created_at",
}

var _ auth.TokenRepository = (*TokenRepo)(nil)

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct {
	builder squirrel.StatementBuilderType
}

// NewTokenRepo creates a refresh token repository.
func NewTokenRepo() *TokenRepo {
	return &TokenRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *TokenRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// SaveRefreshToken stores a refresh token. Only the sha256 hash ever
// reaches the database.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	q := r.builder.Insert(tokensTable).
		Columns("id", "staff_id", "token_hash", "expires_at").
		Values(token.ID, token.StaffID, token.TokenHash, token.ExpiresAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks a token up by its hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	q := r.builder.Select(tokenColumns...).
		From(tokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t auth.RefreshToken
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh token", "")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &t, nil
}

// RevokeRefreshToken marks a single token revoked.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	q := r.builder.Update(tokensTable).
		Set("revoked_at", squirrel.Expr("now()")).
		Set("revoked_reason", reason).
		Where(squirrel.Eq{"id": tokenID}).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllStaffTokens revokes every live token of a staff member.
// Used on password change and deactivation.
func (r *TokenRepo) RevokeAllStaffTokens(ctx context.Context, staffID id.ID, reason string) error {
	q := r.builder.Update(tokensTable).
		Set("revoked_at", squirrel.Expr("now()")).
		Set("revoked_reason", reason).
		Where(squirrel.Eq{"staff_id": staffID}).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke staff tokens: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes tokens expired more than a day ago and
// returns how many were deleted. Meant for a periodic job.
func (r *TokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) {
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	tag, err := querier.Exec(ctx,
		`DELETE FROM staff_refresh_tokens WHERE expires_at < now() - interval '1 day'`,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup refresh tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
