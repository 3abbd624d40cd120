package handlers

import (
	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	"cueclub/internal/domain/tariff"
	"cueclub/internal/infrastructure/http/v1/dto"
	"cueclub/internal/infrastructure/storage/postgres"
)

// TariffHandler handles rate window administration.
type TariffHandler struct {
	*BaseHandler
	service *tariff.Service
}

// NewTariffHandler creates a tariff handler.
func NewTariffHandler(base *BaseHandler, service *tariff.Service) *TariffHandler {
	return &TariffHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the rate window endpoints. Windows are always
// addressed under their table type.
func (h *TariffHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/table-types/:typeId/windows", h.Create)
	rg.GET("/table-types/:typeId/windows", h.List)
	rg.GET("/windows/:id", h.Get)
	rg.PUT("/windows/:id", h.Update)
	rg.DELETE("/windows/:id", h.Delete)
}

// Create creates a rate window for a table type.
// POST /tariff/table-types/:typeId/windows
func (h *TariffHandler) Create(c *gin.Context) {
	ttID, ok := h.ParseID(c, "typeId")
	if !ok {
		return
	}

	var req dto.CreateRateWindowRequest
	if !h.BindJSON(c, &req) {
		return
	}

	w, err := req.ToEntity(ttID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid time of day").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.Create(c.Request.Context(), w); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "rate_window", w.ID, postgres.AuditActionCreate, map[string]any{
		"name": w.Name, "price_per_hour": w.PricePerHour.String(),
		"priority": w.Priority,
	})
	h.Created(c, w.ID)
}

// List returns all windows of a table type in resolver order.
// GET /tariff/table-types/:typeId/windows
func (h *TariffHandler) List(c *gin.Context) {
	ttID, ok := h.ParseID(c, "typeId")
	if !ok {
		return
	}

	list, err := h.service.ListByTableType(c.Request.Context(), ttID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// Get returns a rate window.
// GET /tariff/windows/:id
func (h *TariffHandler) Get(c *gin.Context) {
	windowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	w, err := h.service.GetByID(c.Request.Context(), windowID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, w)
}

// Update updates a rate window.
// PUT /tariff/windows/:id
func (h *TariffHandler) Update(c *gin.Context) {
	windowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRateWindowRequest
	if !h.BindJSON(c, &req) {
		return
	}

	w, err := h.service.GetByID(c.Request.Context(), windowID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(w); err != nil {
		h.Error(c, apperror.NewValidation("invalid time of day").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.Update(c.Request.Context(), w); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "rate_window", w.ID, postgres.AuditActionUpdate, map[string]any{
		"name": w.Name, "price_per_hour": w.PricePerHour.String(),
		"priority": w.Priority, "active": w.Active,
	})
	h.OK(c, w)
}

// Delete removes a rate window.
// DELETE /tariff/windows/:id
func (h *TariffHandler) Delete(c *gin.Context) {
	windowID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), windowID); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "rate_window", windowID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
