package dto

import (
	"cueclub/internal/domain/auth"
)

// LoginResponse carries the token pair and the authenticated staff.
type LoginResponse struct {
	Tokens *auth.TokenPair `json:"tokens"`
	Staff  *auth.Staff     `json:"staff"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}
