package handlers

import (
	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/domain/catalogs/item"
	"cueclub/internal/domain/catalogs/tabletype"
	"cueclub/internal/infrastructure/http/v1/dto"
	"cueclub/internal/infrastructure/storage/postgres"
)

// TableTypeHandler handles table type and table catalog endpoints.
type TableTypeHandler struct {
	*BaseHandler
	service *tabletype.Service
}

// NewTableTypeHandler creates a table catalog handler.
func NewTableTypeHandler(base *BaseHandler, service *tabletype.Service) *TableTypeHandler {
	return &TableTypeHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the table catalog endpoints.
func (h *TableTypeHandler) RegisterRoutes(types, tables *gin.RouterGroup) {
	types.POST("", h.CreateType)
	types.GET("", h.ListTypes)
	types.GET("/:id", h.GetType)
	types.PUT("/:id", h.UpdateType)

	tables.POST("", h.CreateTable)
	tables.GET("", h.ListTables)
	tables.GET("/:id", h.GetTable)
	tables.PUT("/:id", h.UpdateTable)
}

// CreateType creates a table type.
// POST /catalog/table-types
func (h *TableTypeHandler) CreateType(c *gin.Context) {
	var req dto.CreateTableTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tt := req.ToEntity()
	if err := h.service.CreateType(c.Request.Context(), tt); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "table_type", tt.ID, postgres.AuditActionCreate, map[string]any{
		"name": tt.Name, "default_rate_per_hour": tt.DefaultRatePerHour.String(),
	})
	h.Created(c, tt.ID)
}

// GetType returns a table type.
// GET /catalog/table-types/:id
func (h *TableTypeHandler) GetType(c *gin.Context) {
	ttID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	tt, err := h.service.GetType(c.Request.Context(), ttID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tt)
}

// ListTypes returns table types.
// GET /catalog/table-types?includeInactive=
func (h *TableTypeHandler) ListTypes(c *gin.Context) {
	list, err := h.service.ListTypes(c.Request.Context(), c.Query("includeInactive") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// UpdateType updates a table type.
// PUT /catalog/table-types/:id
func (h *TableTypeHandler) UpdateType(c *gin.Context) {
	ttID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTableTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tt, err := h.service.GetType(c.Request.Context(), ttID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(tt)
	if err := h.service.UpdateType(c.Request.Context(), tt); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "table_type", tt.ID, postgres.AuditActionUpdate, map[string]any{
		"name": tt.Name, "default_rate_per_hour": tt.DefaultRatePerHour.String(),
		"active": tt.Active,
	})
	h.OK(c, tt)
}

// CreateTable creates a table.
// POST /catalog/tables
func (h *TableTypeHandler) CreateTable(c *gin.Context) {
	var req dto.CreateTableRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ttID, err := id.Parse(req.TableTypeID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid table type id"))
		return
	}

	tbl := req.ToEntity(ttID)
	if err := h.service.CreateTable(c.Request.Context(), tbl); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, tbl.ID)
}

// GetTable returns a table.
// GET /catalog/tables/:id
func (h *TableTypeHandler) GetTable(c *gin.Context) {
	tableID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	tbl, err := h.service.GetTable(c.Request.Context(), tableID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tbl)
}

// ListTables returns tables, optionally narrowed to one type.
// GET /catalog/tables?tableTypeId=
func (h *TableTypeHandler) ListTables(c *gin.Context) {
	var ttID *id.ID
	if raw := c.Query("tableTypeId"); raw != "" {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid table type id"))
			return
		}
		ttID = &parsed
	}

	list, err := h.service.ListTables(c.Request.Context(), ttID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// UpdateTable updates a table.
// PUT /catalog/tables/:id
func (h *TableTypeHandler) UpdateTable(c *gin.Context) {
	tableID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTableRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tbl, err := h.service.GetTable(c.Request.Context(), tableID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(tbl)
	if err := h.service.UpdateTable(c.Request.Context(), tbl); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tbl)
}

// --- Items ---

// ItemHandler handles the bar/kitchen item catalog endpoints.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates an item catalog handler.
func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service}
}

// RegisterRoutes wires the item endpoints.
func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Deactivate)
}

// Create creates an item.
// POST /catalog/items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "item", it.ID, postgres.AuditActionCreate, map[string]any{
		"name": it.Name, "price": it.Price.String(),
	})
	h.Created(c, it.ID)
}

// Get returns an item.
// GET /catalog/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// List returns items matching the filter.
// GET /catalog/items?category=&search=&includeInactive=&limit=&offset=
func (h *ItemHandler) List(c *gin.Context) {
	filter := item.ListFilter{
		Search:          c.Query("search"),
		IncludeInactive: c.Query("includeInactive") == "true",
		Limit:           h.ParseIntQuery(c, "limit", 50),
		Offset:          h.ParseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("category"); raw != "" {
		cat := item.Category(raw)
		filter.Category = &cat
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

// Update updates an item.
// PUT /catalog/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(it)
	if err := h.service.Update(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "item", it.ID, postgres.AuditActionUpdate, map[string]any{
		"name": it.Name, "price": it.Price.String(), "active": it.Active,
	})
	h.OK(c, it)
}

// Deactivate hides an item from sale. History keeps the item row.
// DELETE /catalog/items/:id
func (h *ItemHandler) Deactivate(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.Audit(c, "item", itemID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
