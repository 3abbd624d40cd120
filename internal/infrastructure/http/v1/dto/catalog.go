package dto

import (
	"github.com/shopspring/decimal"

	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
	"cueclub/internal/domain/catalogs/item"
	"cueclub/internal/domain/catalogs/tabletype"
)

// --- Table Types ---

// CreateTableTypeRequest for creating table types.
type CreateTableTypeRequest struct {
	Name               string          `json:"name" binding:"required"`
	Description        *string         `json:"description"`
	DefaultRatePerHour decimal.Decimal `json:"defaultRatePerHour" binding:"required"`
}

// ToEntity builds a table type from the request.
func (r CreateTableTypeRequest) ToEntity() *tabletype.TableType {
	tt := tabletype.NewTableType(r.Name, r.DefaultRatePerHour)
	tt.Description = r.Description
	return tt
}

// UpdateTableTypeRequest for updating table types.
type UpdateTableTypeRequest struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	DefaultRatePerHour *decimal.Decimal `json:"defaultRatePerHour"`
	Active             *bool            `json:"active"`
}

// ApplyTo merges the request into an existing table type.
func (r UpdateTableTypeRequest) ApplyTo(tt *tabletype.TableType) {
	if r.Name != nil {
		tt.Name = *r.Name
	}
	if r.Description != nil {
		tt.Description = r.Description
	}
	if r.DefaultRatePerHour != nil {
		tt.DefaultRatePerHour = *r.DefaultRatePerHour
	}
	if r.Active != nil {
		tt.Active = *r.Active
	}
}

// --- Tables ---

// CreateTableRequest for creating tables.
type CreateTableRequest struct {
	TableTypeID string `json:"tableTypeId" binding:"required"`
	Number      int    `json:"number" binding:"required,min=1"`
	Label       string `json:"label"`
}

// ToEntity builds a table from the request.
func (r CreateTableRequest) ToEntity(tableTypeID id.ID) *tabletype.Table {
	return tabletype.NewTable(tableTypeID, r.Number, r.Label)
}

// UpdateTableRequest for updating tables.
type UpdateTableRequest struct {
	Number *int    `json:"number"`
	Label  *string `json:"label"`
	Active *bool   `json:"active"`
}

// ApplyTo merges the request into an existing table.
func (r UpdateTableRequest) ApplyTo(tbl *tabletype.Table) {
	if r.Number != nil {
		tbl.Number = *r.Number
	}
	if r.Label != nil {
		tbl.Label = *r.Label
	}
	if r.Active != nil {
		tbl.Active = *r.Active
	}
}

// --- Items ---

// CreateItemRequest for creating bar/kitchen items.
type CreateItemRequest struct {
	Name              string          `json:"name" binding:"required"`
	Category          string          `json:"category" binding:"required"`
	SKU               *string         `json:"sku"`
	Price             decimal.Decimal `json:"price" binding:"required"`
	TracksStock       bool            `json:"tracksStock"`
	LowStockThreshold int64           `json:"lowStockThreshold" binding:"min=0"`
}

// ToEntity builds an item from the request.
func (r CreateItemRequest) ToEntity() *item.Item {
	it := item.NewItem(r.Name, item.Category(r.Category), r.Price)
	it.SKU = r.SKU
	it.TracksStock = r.TracksStock
	it.LowStockThreshold = types.Quantity(r.LowStockThreshold)
	return it
}

// UpdateItemRequest for updating items.
type UpdateItemRequest struct {
	Name              *string          `json:"name"`
	Category          *string          `json:"category"`
	SKU               *string          `json:"sku"`
	Price             *decimal.Decimal `json:"price"`
	TracksStock       *bool            `json:"tracksStock"`
	LowStockThreshold *int64           `json:"lowStockThreshold"`
	Active            *bool            `json:"active"`
}

// ApplyTo merges the request into an existing item.
func (r UpdateItemRequest) ApplyTo(it *item.Item) {
	if r.Name != nil {
		it.Name = *r.Name
	}
	if r.Category != nil {
		it.Category = item.Category(*r.Category)
	}
	if r.SKU != nil {
		it.SKU = r.SKU
	}
	if r.Price != nil {
		it.Price = *r.Price
	}
	if r.TracksStock != nil {
		it.TracksStock = *r.TracksStock
	}
	if r.LowStockThreshold != nil {
		it.LowStockThreshold = types.Quantity(*r.LowStockThreshold)
	}
	if r.Active != nil {
		it.Active = *r.Active
	}
}
