// Package tabletype provides the table category catalog and the tables
// themselves. A table type carries the default hourly rate used when no
// rate window matches.
package tabletype

import (
	"context"
	"time"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// TableType is a category of billiards tables (russian pyramid, pool,
// snooker) with shared pricing defaults.
type TableType struct {
	ID          id.ID   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`

	// DefaultRatePerHour is charged for minutes no rate window covers.
	DefaultRatePerHour types.Money `db:"default_rate_per_hour" json:"defaultRatePerHour"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewTableType creates an active table type.
func NewTableType(name string, defaultRate types.Money) *TableType {
	return &TableType{
		ID:                 id.New(),
		Name:               name,
		DefaultRatePerHour: defaultRate,
		Active:             true,
	}
}

// Validate checks required fields.
func (t *TableType) Validate(ctx context.Context) error {
	if t.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if t.DefaultRatePerHour.IsNegative() {
		return apperror.NewValidation("default rate cannot be negative").
			WithDetail("field", "defaultRatePerHour")
	}
	return nil
}

// Table is one physical table on the floor.
type Table struct {
	ID          id.ID  `db:"id" json:"id"`
	TableTypeID id.ID  `db:"table_type_id" json:"tableTypeId"`
	Number      int    `db:"number" json:"number"`
	Label       string `db:"label" json:"label"`

	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewTable creates an active table of the given type.
func NewTable(tableTypeID id.ID, number int, label string) *Table {
	return &Table{
		ID:          id.New(),
		TableTypeID: tableTypeID,
		Number:      number,
		Label:       label,
		Active:      true,
	}
}

// Validate checks required fields.
func (t *Table) Validate(ctx context.Context) error {
	if id.IsNil(t.TableTypeID) {
		return apperror.NewValidation("table type is required").
			WithDetail("field", "tableTypeId")
	}
	if t.Number <= 0 {
		return apperror.NewValidation("table number must be positive").
			WithDetail("field", "number")
	}
	return nil
}
