package auth

import (
	"context"

	"cueclub/internal/core/id"
)

// StaffRepository defines staff account storage.
type StaffRepository interface {
	Create(ctx context.Context, st *Staff) error
	GetByID(ctx context.Context, staffID id.ID) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	Update(ctx context.Context, st *Staff) error
	List(ctx context.Context, filter StaffFilter) ([]Staff, int, error)
	Exists(ctx context.Context, email string) (bool, error)
}

// TokenRepository defines refresh token storage.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllStaffTokens(ctx context.Context, staffID id.ID, reason string) error
	CleanupExpiredTokens(ctx context.Context) (int, error)
}
