package handlers

import (
	"github.com/gin-gonic/gin"

	"cueclub/internal/domain/discount"
	"cueclub/internal/infrastructure/http/v1/dto"
	"cueclub/internal/infrastructure/storage/postgres"
)

// DiscountHandler handles discount code administration.
type DiscountHandler struct {
	*BaseHandler
	service *discount.Service
}

// NewDiscountHandler creates a discount handler.
func NewDiscountHandler(base *BaseHandler, service *discount.Service) *DiscountHandler {
	return &DiscountHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the discount endpoints.
func (h *DiscountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:code", h.Get)
	rg.PUT("/:code", h.Update)
}

// Create creates a discount code. The eligibility rule is compiled
// before anything is stored, so a broken rule never reaches a receipt.
// POST /catalog/discounts
func (h *DiscountHandler) Create(c *gin.Context) {
	var req dto.CreateDiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	d := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), d); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "discount", d.ID, postgres.AuditActionCreate, map[string]any{
		"code": d.Code, "type": string(d.Type), "value": d.Value.String(),
	})
	h.Created(c, d.ID)
}

// Get returns a discount code.
// GET /catalog/discounts/:code
func (h *DiscountHandler) Get(c *gin.Context) {
	d, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, d)
}

// List returns discount codes.
// GET /catalog/discounts?includeInactive=
func (h *DiscountHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Query("includeInactive") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// Update updates a discount code.
// PUT /catalog/discounts/:code
func (h *DiscountHandler) Update(c *gin.Context) {
	var req dto.UpdateDiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	d, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(d)
	if err := h.service.Update(c.Request.Context(), d); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "discount", d.ID, postgres.AuditActionUpdate, map[string]any{
		"code": d.Code, "type": string(d.Type), "value": d.Value.String(),
		"active": d.Active,
	})
	h.OK(c, d)
}
