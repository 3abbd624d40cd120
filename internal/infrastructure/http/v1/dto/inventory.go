package dto

import (
	"github.com/shopspring/decimal"
)

// StockReceiptRequest registers purchased stock for an item.
type StockReceiptRequest struct {
	Quantity        int64           `json:"quantity" binding:"required,min=1"`
	UnitImportPrice decimal.Decimal `json:"unitImportPrice" binding:"required"`
	Note            *string         `json:"note"`
}

// StockAdjustmentRequest corrects the stock of an item after a
// stocktake. Positive quantities add stock at the given price,
// negative quantities write stock off.
type StockAdjustmentRequest struct {
	Quantity        int64            `json:"quantity" binding:"required"`
	UnitImportPrice *decimal.Decimal `json:"unitImportPrice"`
	Note            *string          `json:"note"`
}
