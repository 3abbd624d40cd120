package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/types"
)

func sampleFacts() Facts {
	return Facts{
		PlayMinutes: 125,
		TimeCost:    types.MustMoney("625"),
		ItemsTotal:  types.MustMoney("340"),
		Total:       types.MustMoney("965"),
		Weekday:     time.Tuesday,
		TableType:   "russian",
	}
}

func TestRuleEngine_Eligible(t *testing.T) {
	engine, err := NewRuleEngine()
	require.NoError(t, err)

	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"empty expression always eligible", "", true},
		{"minutes threshold met", "playMinutes >= 120", true},
		{"minutes threshold not met", "playMinutes >= 180", false},
		{"weekday rule", "weekday >= 1 && weekday <= 4", true},
		{"table type rule", `tableType == "russian"`, true},
		{"total threshold", "total > 1000.0", false},
		{"combined rule", `playMinutes >= 60 && itemsTotal > 300.0 && tableType in ["russian", "pool"]`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Eligible(tc.expr, sampleFacts())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRuleEngine_Compile_Rejects(t *testing.T) {
	engine, err := NewRuleEngine()
	require.NoError(t, err)

	// Syntax error.
	err = engine.Compile("playMinutes >=")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	// Unknown variable.
	err = engine.Compile("memberLevel > 2")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	// Non-boolean result.
	err = engine.Compile("playMinutes + 1")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestRuleEngine_CachesPrograms(t *testing.T) {
	engine, err := NewRuleEngine()
	require.NoError(t, err)

	const expr = "playMinutes > 0"
	require.NoError(t, engine.Compile(expr))
	require.NoError(t, engine.Compile(expr))

	engine.mu.RLock()
	defer engine.mu.RUnlock()
	assert.Len(t, engine.programs, 1)
}

func TestDiscount_Amount(t *testing.T) {
	percent := NewDiscount("TEN", "10% off", TypePercent, types.MustMoney("10"))
	fixed := NewDiscount("FLAT200", "200 off", TypeFixed, types.MustMoney("200"))

	total := types.MustMoney("965")

	assert.True(t, percent.Amount(total).Equal(types.MustMoney("96.5")))
	assert.True(t, fixed.Amount(total).Equal(types.MustMoney("200")))

	// Fixed discount never exceeds the total.
	small := types.MustMoney("150")
	assert.True(t, fixed.Amount(small).Equal(small))

	// Nothing to discount.
	assert.True(t, percent.Amount(types.Zero()).IsZero())
}

func TestDiscount_UsableAt(t *testing.T) {
	now := time.Date(2025, 7, 14, 20, 0, 0, 0, time.UTC)

	d := NewDiscount("HAPPY", "happy hour", TypePercent, types.MustMoney("15"))
	require.NoError(t, d.UsableAt(now))

	from := now.Add(time.Hour)
	d.ValidFrom = &from
	err := d.UsableAt(now)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDiscountNotUsable, appErr.Code)

	d.ValidFrom = nil
	until := now.Add(-time.Hour)
	d.ValidUntil = &until
	require.Error(t, d.UsableAt(now))

	d.ValidUntil = nil
	d.UsageLimit = 3
	d.UsedCount = 3
	require.Error(t, d.UsableAt(now))

	d.UsedCount = 2
	require.NoError(t, d.UsableAt(now))

	d.Active = false
	require.Error(t, d.UsableAt(now))
}
