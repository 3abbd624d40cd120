// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	appctx "cueclub/internal/core/context"
	"cueclub/internal/core/id"
	"cueclub/internal/infrastructure/http/v1/dto"
	"cueclub/internal/infrastructure/storage/postgres"
	"cueclub/pkg/logger"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	audit *postgres.AuditService // optional
}

// NewBaseHandler creates a new base handler. A nil audit service
// disables the audit trail without touching the handlers.
func NewBaseHandler(audit *postgres.AuditService) *BaseHandler {
	return &BaseHandler{audit: audit}
}

// Audit records a catalog mutation to the audit trail. Failures are
// logged and swallowed: a lost audit row must not fail the mutation
// that already committed.
func (h *BaseHandler) Audit(c *gin.Context, entityType string, entityID id.ID, action postgres.AuditAction, changes map[string]any) {
	if h.audit == nil {
		return
	}
	ctx := c.Request.Context()
	if err := h.audit.LogChange(ctx, entityType, entityID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// BindJSON binds and validates the JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers the error on the Gin context and aborts the request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID parses a path parameter as an entity id.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	parsed, err := id.Parse(c.Param(param))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("param", param))
		return id.ID{}, false
	}
	return parsed, true
}

// ParseIntQuery parses an integer query parameter with a default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ActorID returns the authenticated user id as an actor reference,
// or nil on unauthenticated routes.
func (h *BaseHandler) ActorID(c *gin.Context) *id.ID {
	raw := appctx.GetUserID(c.Request.Context())
	if raw == "" {
		return nil
	}
	parsed, err := id.Parse(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// Created sends a 201 response with an ID.
func (h *BaseHandler) Created(c *gin.Context, entityID id.ID) {
	c.JSON(http.StatusCreated, dto.NewIDResponse(entityID))
}

// OK sends a 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends a 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Success sends a success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
