package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/types"
	"cueclub/internal/domain/inventory"
	"cueclub/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles stock endpoints.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates an inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the inventory endpoints.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/items/:itemId", h.GetRecord)
	rg.GET("/items/:itemId/movements", h.ListMovements)
	rg.POST("/items/:itemId/receipts", h.Receive)
	rg.POST("/items/:itemId/adjustments", h.Adjust)
	rg.GET("/low-stock", h.LowStock)
	rg.GET("/items/:itemId/verify", h.Verify)
}

// GetRecord returns the stock position of an item.
// GET /inventory/items/:itemId
func (h *InventoryHandler) GetRecord(c *gin.Context) {
	itemID, ok := h.ParseID(c, "itemId")
	if !ok {
		return
	}

	rec, err := h.service.GetRecord(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Receive registers purchased stock at the batch import price.
// POST /inventory/items/:itemId/receipts
func (h *InventoryHandler) Receive(c *gin.Context) {
	itemID, ok := h.ParseID(c, "itemId")
	if !ok {
		return
	}

	var req dto.StockReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.IncreaseStock(c.Request.Context(), inventory.IncreaseInput{
		ItemID:          itemID,
		Quantity:        types.Quantity(req.Quantity),
		UnitImportPrice: req.UnitImportPrice,
		Kind:            inventory.KindImport,
		ActorID:         h.ActorID(c),
		Note:            req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(201, rec)
}

// Adjust corrects stock after a stocktake. Positive quantities add at
// the given price, negative quantities write off.
// POST /inventory/items/:itemId/adjustments
func (h *InventoryHandler) Adjust(c *gin.Context) {
	itemID, ok := h.ParseID(c, "itemId")
	if !ok {
		return
	}

	var req dto.StockAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var rec *inventory.Record
	var err error

	switch {
	case req.Quantity > 0:
		price := types.Zero()
		if req.UnitImportPrice != nil {
			price = *req.UnitImportPrice
		}
		rec, err = h.service.IncreaseStock(ctx, inventory.IncreaseInput{
			ItemID:          itemID,
			Quantity:        types.Quantity(req.Quantity),
			UnitImportPrice: price,
			Kind:            inventory.KindAdjustment,
			ActorID:         h.ActorID(c),
			Note:            req.Note,
		})
	case req.Quantity < 0:
		rec, err = h.service.DecreaseStock(ctx, inventory.DecreaseInput{
			ItemID:   itemID,
			Quantity: types.Quantity(-req.Quantity),
			Kind:     inventory.KindAdjustment,
			ActorID:  h.ActorID(c),
			Note:     req.Note,
		})
	default:
		h.Error(c, apperror.NewValidation("quantity cannot be zero").WithDetail("field", "quantity"))
		return
	}

	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(201, rec)
}

// ListMovements returns the movement ledger of an item.
// GET /inventory/items/:itemId/movements?kind=&from=&to=&limit=&offset=
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	itemID, ok := h.ParseID(c, "itemId")
	if !ok {
		return
	}

	filter := inventory.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("kind"); raw != "" {
		kind := inventory.MovementKind(raw)
		filter.Kind = &kind
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from date"))
			return
		}
		filter.FromDate = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to date"))
			return
		}
		filter.ToDate = &to
	}

	movements, err := h.service.GetMovementHistory(c.Request.Context(), itemID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      movements,
		TotalCount: len(movements),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// LowStock returns positions below the threshold.
// GET /inventory/low-stock?threshold=
func (h *InventoryHandler) LowStock(c *gin.Context) {
	threshold := types.Quantity(h.ParseIntQuery(c, "threshold", 10))

	records, err := h.service.ListLowStock(c.Request.Context(), threshold)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, records)
}

// Verify replays the movement ledger against the current position.
// GET /inventory/items/:itemId/verify
func (h *InventoryHandler) Verify(c *gin.Context) {
	itemID, ok := h.ParseID(c, "itemId")
	if !ok {
		return
	}

	if err := h.service.VerifyLedger(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "ledger consistent")
}
