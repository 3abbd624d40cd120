package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/core/tx"
	"cueclub/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts   int
	LockDuration       time.Duration
	PasswordMinLength  int
	RefreshTokenExpiry time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:   5,
		LockDuration:       15 * time.Minute,
		PasswordMinLength:  8,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

// Service provides staff authentication.
// In Database-per-Tenant architecture, TxManager is obtained from context.
type Service struct {
	staffRepo  StaffRepository
	tokenRepo  TokenRepository
	txManager  tx.Manager // Optional. If nil, obtained from context.
	jwtService *JWTService
	config     ServiceConfig
}

// NewService creates an auth service.
func NewService(
	staffRepo StaffRepository,
	tokenRepo TokenRepository,
	txManager tx.Manager,
	jwtService *JWTService,
	config ServiceConfig,
) *Service {
	return &Service{
		staffRepo:  staffRepo,
		tokenRepo:  tokenRepo,
		txManager:  txManager,
		jwtService: jwtService,
		config:     config,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

func (s *Service) requireClubID(ctx context.Context) (string, error) {
	clubID := tenant.GetClubID(ctx)
	if clubID == "" {
		// Should be prevented by the tenant middleware.
		return "", apperror.NewValidation("club is required").
			WithDetail("header", "X-Club-Slug")
	}
	return clubID, nil
}

// Register creates a staff account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Staff, error) {
	if _, err := s.requireClubID(ctx); err != nil {
		return nil, err
	}

	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	exists, err := s.staffRepo.Exists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email exists: %w", err)
	}
	if exists {
		return nil, apperror.NewConflict("email already registered").WithDetail("email", req.Email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	st := NewStaff(req.Email, string(passwordHash), req.Name, req.Role)
	if err := st.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.staffRepo.Create(ctx, st)
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "staff registered", "staff_id", st.ID, "email", st.Email, "role", st.Role)
	return st, nil
}

// Login authenticates a staff member and returns tokens.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *Staff, error) {
	if _, err := s.requireClubID(ctx); err != nil {
		return nil, nil, err
	}

	st, err := s.staffRepo.GetByEmail(ctx, creds.Email)
	if err != nil {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}
	if err := st.CanLogin(); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(creds.Password)); err != nil {
		st.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockDuration)
		_ = s.staffRepo.Update(ctx, st)
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	tokens, err := s.generateTokenPair(ctx, st)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	st.RecordSuccessfulLogin()
	_ = s.staffRepo.Update(ctx, st)

	logger.Info(ctx, "staff logged in", "staff_id", st.ID, "email", st.Email)
	return tokens, st, nil
}

// RefreshToken exchanges a refresh token for a new pair.
// The old token is revoked: refresh tokens are single-use.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := hashToken(refreshToken)

	token, err := s.tokenRepo.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token")
	}
	if !token.IsValid() {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	st, err := s.staffRepo.GetByID(ctx, token.StaffID)
	if err != nil {
		return nil, apperror.NewUnauthorized("staff account not found")
	}
	if err := st.CanLogin(); err != nil {
		return nil, err
	}

	_ = s.tokenRepo.RevokeRefreshToken(ctx, token.ID, "refreshed")

	return s.generateTokenPair(ctx, st)
}

// Logout revokes all the staff member's refresh tokens.
func (s *Service) Logout(ctx context.Context, staffID id.ID) error {
	return s.tokenRepo.RevokeAllStaffTokens(ctx, staffID, "logout")
}

// ChangePassword verifies the old password and sets a new one,
// revoking existing sessions.
func (s *Service) ChangePassword(ctx context.Context, staffID id.ID, oldPassword, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "newPassword")
	}

	st, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return apperror.NewNotFound("staff", staffID.String())
	}

	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(oldPassword)); err != nil {
		return apperror.NewUnauthorized("invalid credentials")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	st.PasswordHash = string(hash)

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.staffRepo.Update(ctx, st)
	}); err != nil {
		return err
	}

	_ = s.tokenRepo.RevokeAllStaffTokens(ctx, staffID, "password changed")

	logger.Info(ctx, "password changed", "staff_id", staffID)
	return nil
}

// Deactivate disables a staff account and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, staffID id.ID) error {
	st, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return apperror.NewNotFound("staff", staffID.String())
	}
	if !st.IsActive {
		return nil
	}
	st.IsActive = false

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.staffRepo.Update(ctx, st)
	}); err != nil {
		return err
	}

	_ = s.tokenRepo.RevokeAllStaffTokens(ctx, staffID, "deactivated")

	logger.Info(ctx, "staff deactivated", "staff_id", staffID)
	return nil
}

// GetByID returns a staff account.
func (s *Service) GetByID(ctx context.Context, staffID id.ID) (*Staff, error) {
	st, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return nil, apperror.NewNotFound("staff", staffID.String())
	}
	return st, nil
}

// List returns staff accounts with a total count.
func (s *Service) List(ctx context.Context, filter StaffFilter) ([]Staff, int, error) {
	return s.staffRepo.List(ctx, filter)
}

func (s *Service) generateTokenPair(ctx context.Context, st *Staff) (*TokenPair, error) {
	clubID, err := s.requireClubID(ctx)
	if err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(st.ID.String(), clubID, st.Email, st.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshTokenRaw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:        id.New(),
		StaffID:   st.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: time.Now().Add(s.config.RefreshTokenExpiry),
		CreatedAt: time.Now(),
	}
	if err := s.tokenRepo.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

// hashToken creates SHA256 hash of a token. Only hashes hit the database.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
