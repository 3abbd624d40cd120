package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	appctx "cueclub/internal/core/context"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/auth"
	"cueclub/internal/infrastructure/http/v1/dto"
	"cueclub/internal/infrastructure/http/v1/middleware"
)

// AuthHandler handles staff authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
	protected.POST("/change-password", h.ChangePassword)
	// Staff management is admin-only.
	protected.POST("/staff", middleware.RequireRole("admin"), h.Register)
	protected.GET("/staff", middleware.RequireRole("admin"), h.ListStaff)
	protected.DELETE("/staff/:id", middleware.RequireRole("admin"), h.DeactivateStaff)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var creds auth.Credentials
	if !h.BindJSON(c, &creds) {
		return
	}

	tokens, staff, err := h.service.Login(c.Request.Context(), creds)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{Tokens: tokens, Staff: staff})
}

// Refresh handles POST /auth/refresh. Refresh tokens are single-use;
// the old one is revoked when the new pair is issued.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tokens)
}

// Logout handles POST /auth/logout. Revokes every live refresh token
// of the caller.
func (h *AuthHandler) Logout(c *gin.Context) {
	staffID, ok := h.callerID(c)
	if !ok {
		return
	}

	if err := h.service.Logout(c.Request.Context(), staffID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "logged out")
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	staffID, ok := h.callerID(c)
	if !ok {
		return
	}

	staff, err := h.service.GetByID(c.Request.Context(), staffID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, staff)
}

// ChangePassword handles POST /auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	staffID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), staffID, req.OldPassword, req.NewPassword); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "password changed")
}

// Register handles POST /auth/staff (admin only).
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	staff, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

// ListStaff handles GET /auth/staff (admin only).
func (h *AuthHandler) ListStaff(c *gin.Context) {
	filter := auth.StaffFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("role"); raw != "" {
		role := auth.Role(raw)
		filter.Role = &role
	}

	list, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      list,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// DeactivateStaff handles DELETE /auth/staff/:id (admin only).
func (h *AuthHandler) DeactivateStaff(c *gin.Context) {
	staffID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), staffID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func (h *AuthHandler) callerID(c *gin.Context) (id.ID, bool) {
	raw := appctx.GetUserID(c.Request.Context())
	staffID, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return id.Nil(), false
	}
	return staffID, true
}
