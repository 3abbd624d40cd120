package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
	"cueclub/internal/domain/sessions"
	"cueclub/internal/infrastructure/http/v1/dto"
)

// SessionHandler handles the session lifecycle endpoints.
type SessionHandler struct {
	*BaseHandler
	service *sessions.Service
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(base *BaseHandler, service *sessions.Service) *SessionHandler {
	return &SessionHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the session endpoints.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Open)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/items", h.AddItem)
	rg.DELETE("/:id/items/:itemId", h.RemoveItem)
	rg.POST("/:id/request-end", h.RequestEnd)
	rg.POST("/:id/close", h.Close)
	rg.POST("/:id/pay", h.Pay)
}

// Open starts a session on a free table.
// POST /sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tableID, err := id.Parse(req.TableID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid table id"))
		return
	}

	sess, err := h.service.Open(c.Request.Context(), sessions.OpenInput{
		TableID:  tableID,
		OpenedBy: h.ActorID(c),
		Note:     req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(201, sess)
}

// Get returns a session with its order items.
// GET /sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sess, err := h.service.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sess)
}

// List returns sessions matching the filter.
// GET /sessions?status=&tableId=&from=&to=&limit=&offset=
func (h *SessionHandler) List(c *gin.Context) {
	filter := sessions.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("status"); raw != "" {
		status := sessions.Status(raw)
		filter.Status = &status
	}
	if raw := c.Query("tableId"); raw != "" {
		tableID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid table id"))
			return
		}
		filter.TableID = &tableID
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

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      list,
		TotalCount: len(list),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// AddItem puts an item on the session tab.
// POST /sessions/:id/items
func (h *SessionHandler) AddItem(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AddOrderItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid item id"))
		return
	}

	oi, err := h.service.AddItem(c.Request.Context(), sessions.AddItemInput{
		SessionID: sessionID,
		ItemID:    itemID,
		Quantity:  types.Quantity(req.Quantity),
		ActorID:   h.ActorID(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(201, oi)
}

// RemoveItem takes an item off the tab and returns its stock.
// DELETE /sessions/:id/items/:itemId
func (h *SessionHandler) RemoveItem(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	orderItemID, ok := h.ParseID(c, "itemId")
	if !ok {
		return
	}

	if err := h.service.RemoveItem(c.Request.Context(), sessionID, orderItemID, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RequestEnd stops the clock and freezes the tab without pricing.
// POST /sessions/:id/request-end
func (h *SessionHandler) RequestEnd(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sess, err := h.service.RequestEnd(c.Request.Context(), sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sess)
}

// Close prices the session and issues the receipt number.
// POST /sessions/:id/close
func (h *SessionHandler) Close(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	// body is optional; close without a discount needs none
	var req dto.CloseSessionRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	sess, err := h.service.Close(c.Request.Context(), sessions.CloseInput{
		SessionID:    sessionID,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sess)
}

// Pay settles a closed session.
// POST /sessions/:id/pay
func (h *SessionHandler) Pay(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PaySessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sess, err := h.service.Pay(c.Request.Context(), sessionID, sessions.PaymentMethod(req.Method))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sess)
}
