// Package sessions provides the play session lifecycle: a table is
// opened, bar items are added against stock, and the session is closed
// into a priced receipt and paid.
package sessions

import (
	"context"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// Status is the session lifecycle state.
//
//	active → pending_end → closed → paid
//
// Close is also allowed straight from active (walk-out at the desk).
// Closed and paid sessions are immutable.
type Status string

const (
	StatusActive     Status = "active"
	StatusPendingEnd Status = "pending_end"
	StatusClosed     Status = "closed"
	StatusPaid       Status = "paid"
)

// PaymentMethod is how a closed session was settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// Session is one table rental from open to payment.
type Session struct {
	ID            id.ID  `db:"id" json:"id"`
	ReceiptNumber string `db:"receipt_number" json:"receiptNumber"`

	TableID     id.ID  `db:"table_id" json:"tableId"`
	TableTypeID id.ID  `db:"table_type_id" json:"tableTypeId"`
	Status      Status `db:"status" json:"status"`

	StartAt time.Time  `db:"start_at" json:"startAt"`
	EndAt   *time.Time `db:"end_at" json:"endAt,omitempty"`

	// FrozenRatePerHour is the rate in effect at open time. It is the
	// fallback for minutes no rate window covers, so mid-session tariff
	// edits cannot leave the session unpriced.
	FrozenRatePerHour types.Money `db:"frozen_rate_per_hour" json:"frozenRatePerHour"`

	// Totals are computed at close and zero before it.
	PlayMinutes    int         `db:"play_minutes" json:"playMinutes"`
	TimeCost       types.Money `db:"time_cost" json:"timeCost"`
	ItemsTotal     types.Money `db:"items_total" json:"itemsTotal"`
	DiscountCode   *string     `db:"discount_code" json:"discountCode,omitempty"`
	DiscountID     *id.ID      `db:"discount_id" json:"discountId,omitempty"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	Total          types.Money `db:"total" json:"total"`

	PaymentMethod *PaymentMethod `db:"payment_method" json:"paymentMethod,omitempty"`
	PaidAt        *time.Time     `db:"paid_at" json:"paidAt,omitempty"`

	OpenedBy *id.ID  `db:"opened_by" json:"openedBy,omitempty"`
	Note     *string `db:"note" json:"note,omitempty"`

	Items []OrderItem `db:"-" json:"items,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewSession opens a session on a table at the given instant.
func NewSession(tableID, tableTypeID id.ID, startAt time.Time, frozenRate types.Money) *Session {
	return &Session{
		ID:                id.New(),
		TableID:           tableID,
		TableTypeID:       tableTypeID,
		Status:            StatusActive,
		StartAt:           startAt,
		FrozenRatePerHour: frozenRate,
		TimeCost:          types.Zero(),
		ItemsTotal:        types.Zero(),
		DiscountAmount:    types.Zero(),
		Total:             types.Zero(),
	}
}

// IsOpen reports whether the session still accepts mutations.
func (s *Session) IsOpen() bool {
	return s.Status == StatusActive || s.Status == StatusPendingEnd
}

// CanModify returns an error unless order items may still change.
// Items are frozen once the guest asks for the bill.
func (s *Session) CanModify() error {
	if s.Status != StatusActive {
		return apperror.NewSessionClosed(s.ID)
	}
	return nil
}

// CanClose returns an error unless the session may be closed.
func (s *Session) CanClose() error {
	if !s.IsOpen() {
		return apperror.NewSessionClosed(s.ID)
	}
	return nil
}

// OrderItem is one bar/kitchen position on the session receipt.
type OrderItem struct {
	ID        id.ID `db:"id" json:"id"`
	SessionID id.ID `db:"session_id" json:"sessionId"`
	ItemID    id.ID `db:"item_id" json:"itemId"`

	// Name and UnitPrice are copied from the catalog at sale time so
	// later catalog edits do not rewrite history.
	Name      string         `db:"name" json:"name"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Total     types.Money    `db:"total" json:"total"`

	// UnitCost is the stock average at sale time, the basis a removal
	// returns the units at. Zero for items that do not track stock.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ReferenceType implements inventory.Reference.
func (o *OrderItem) ReferenceType() string { return "order_item" }

// ReferenceID implements inventory.Reference.
func (o *OrderItem) ReferenceID() id.ID { return o.ID }

// ListFilter narrows session listings.
type ListFilter struct {
	Status   *Status
	TableID  *id.ID
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Validate checks an order item before persisting.
func (o *OrderItem) Validate(ctx context.Context) error {
	if id.IsNil(o.ItemID) {
		return apperror.NewValidation("item is required").
			WithDetail("field", "itemId")
	}
	if !o.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	return nil
}
