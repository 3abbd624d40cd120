// Package auth provides staff authentication for the club.
package auth

import (
	"context"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
)

// Role is a staff member's role. The club hierarchy is flat enough that
// a single role per member replaces a role/permission matrix.
type Role string

const (
	RoleAdmin   Role = "admin"   // owner: everything, incl. staff management
	RoleManager Role = "manager" // catalogs, tariffs, discounts, reports
	RoleClerk   Role = "clerk"   // desk: sessions, orders, payments
)

func isValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleClerk:
		return true
	}
	return false
}

// Staff is one club employee account.
type Staff struct {
	ID           id.ID  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Name         string `db:"name" json:"name"`
	Role         Role   `db:"role" json:"role"`

	IsActive            bool       `db:"is_active" json:"isActive"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStaff creates an active staff account.
func NewStaff(email, passwordHash, name string, role Role) *Staff {
	return &Staff{
		ID:           id.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		IsActive:     true,
	}
}

// Validate checks required fields.
func (s *Staff) Validate(ctx context.Context) error {
	if s.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if !isValidRole(s.Role) {
		return apperror.NewValidation("invalid role").
			WithDetail("field", "role").
			WithDetail("value", string(s.Role))
	}
	return nil
}

// IsAdmin reports owner privileges.
func (s *Staff) IsAdmin() bool { return s.Role == RoleAdmin }

// IsLocked reports a temporary lockout after failed logins.
func (s *Staff) IsLocked() bool {
	return s.LockedUntil != nil && time.Now().Before(*s.LockedUntil)
}

// CanLogin checks account state before password verification.
func (s *Staff) CanLogin() error {
	if !s.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if s.IsLocked() {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments the failure counter, locking the account
// when the limit is reached.
func (s *Staff) RecordFailedLogin(maxAttempts int, lockDuration time.Duration) {
	s.FailedLoginAttempts++
	if s.FailedLoginAttempts >= maxAttempts {
		lockUntil := time.Now().Add(lockDuration)
		s.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulLogin resets the failure counter.
func (s *Staff) RecordSuccessfulLogin() {
	s.FailedLoginAttempts = 0
	s.LockedUntil = nil
	now := time.Now()
	s.LastLoginAt = &now
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID        id.ID      `db:"id"`
	StaffID   id.ID      `db:"staff_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// IsValid reports whether the token can still be exchanged.
func (t *RefreshToken) IsValid() bool {
	return t.RevokedAt == nil && time.Now().Before(t.ExpiresAt)
}

// Credentials for login.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest for creating a staff account.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     Role   `json:"role" binding:"required"`
}

// TokenPair is the login/refresh response.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// StaffFilter for listing staff accounts.
type StaffFilter struct {
	Search   string
	IsActive *bool
	Role     *Role
	Limit    int
	Offset   int
}
