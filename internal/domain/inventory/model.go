// Package inventory provides the stock valuation engine.
// Stock positions carry a moving weighted average cost: every receipt
// blends its batch price into the average, every issue consumes at the
// current average. Movements form an append-only ledger.
package inventory

import (
	"time"

	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// MovementKind classifies a ledger entry.
type MovementKind string

const (
	KindImport     MovementKind = "import"     // purchase receipt
	KindSale       MovementKind = "sale"       // order item
	KindAdjustment MovementKind = "adjustment" // manual correction
	KindReturn     MovementKind = "return"     // item returned to stock
)

// ValidKind reports whether k is a known movement kind.
func ValidKind(k MovementKind) bool {
	switch k {
	case KindImport, KindSale, KindAdjustment, KindReturn:
		return true
	}
	return false
}

// Record is the current stock position for one sellable item.
//
// Quantity is signed: an oversold position (negative quantity) is a
// tolerated state pending reconciliation, not an error. AverageCost is
// only meaningful while quantity is positive and is never touched by
// decreases.
type Record struct {
	ID            id.ID          `db:"id" json:"id"`
	ItemID        id.ID          `db:"item_id" json:"itemId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	AverageCost   types.Money    `db:"average_cost" json:"averageCost"`
	LastRestockAt *time.Time     `db:"last_restock_at" json:"lastRestockAt,omitempty"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// NewRecord creates the lazy zero position for an item.
func NewRecord(itemID id.ID) *Record {
	return &Record{
		ID:          id.New(),
		ItemID:      itemID,
		Quantity:    0,
		AverageCost: types.Zero(),
	}
}

// Movement is one immutable ledger entry. Exactly one row is written
// per stock mutation; QuantitySnapshot is the post-movement quantity, so
// for any item the snapshots replay as a prefix sum of the deltas.
type Movement struct {
	ID               id.ID          `db:"id" json:"id"`
	ItemID           id.ID          `db:"item_id" json:"itemId"`
	ActorID          *id.ID         `db:"actor_id" json:"actorId,omitempty"`
	Kind             MovementKind   `db:"kind" json:"kind"`
	QuantityDelta    types.Quantity `db:"quantity_delta" json:"quantityDelta"`
	QuantitySnapshot types.Quantity `db:"quantity_snapshot" json:"quantitySnapshot"`

	// UnitCost is the cost attributed to this movement: the batch import
	// price on receipts, the average cost at time of sale on issues
	// (the cost-of-goods-sold basis).
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// Polymorphic pointer to the causing entity (order item, purchase,
	// admin adjustment).
	ReferenceType string `db:"reference_type" json:"referenceType"`
	ReferenceID   id.ID  `db:"reference_id" json:"referenceId"`

	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Reference identifies the entity that caused a movement.
// Any domain object with a stable type tag and id can serve; the engine
// only copies the pair into the ledger row.
type Reference interface {
	ReferenceType() string
	ReferenceID() id.ID
}

// Ref is a plain Reference value.
type Ref struct {
	Type string
	ID   id.ID
}

func (r Ref) ReferenceType() string { return r.Type }
func (r Ref) ReferenceID() id.ID    { return r.ID }
