package dto

// OpenSessionRequest starts a session on a table.
type OpenSessionRequest struct {
	TableID string  `json:"tableId" binding:"required"`
	Note    *string `json:"note"`
}

// AddOrderItemRequest puts an item on the session tab.
type AddOrderItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,min=1"`
}

// CloseSessionRequest prices and closes a session.
type CloseSessionRequest struct {
	DiscountCode *string `json:"discountCode"`
}

// PaySessionRequest settles a closed session.
type PaySessionRequest struct {
	Method string `json:"method" binding:"required"`
}
