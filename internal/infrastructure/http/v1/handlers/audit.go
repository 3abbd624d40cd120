package handlers

import (
	"github.com/gin-gonic/gin"

	"cueclub/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the audit trail for catalog entities.
type AuditHandler struct {
	*BaseHandler
	service *postgres.AuditService
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(base *BaseHandler, service *postgres.AuditService) *AuditHandler {
	return &AuditHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the audit endpoints.
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:entityType/:entityId", h.History)
}

// History returns recent audit entries for one entity, newest first.
// GET /audit/:entityType/:entityId?limit=
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.ParseID(c, "entityId")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := h.service.GetEntityHistory(c.Request.Context(), c.Param("entityType"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}
