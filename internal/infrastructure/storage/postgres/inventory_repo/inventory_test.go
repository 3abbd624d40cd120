package inventory_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/internal/core/types"
)

// An item sitting exactly at the threshold must show up in the
// low-stock report.
func TestLowStockQueryInclusive(t *testing.T) {
	r := NewRepo()

	sql, args, err := r.lowStockQuery(types.Quantity(5)).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "quantity <= $1")
	require.Len(t, args, 1)
	assert.Equal(t, types.Quantity(5), args[0])
}
