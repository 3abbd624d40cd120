package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/internal/core/id"
	"cueclub/internal/core/tenant"
	"cueclub/internal/domain/tariff"
)

type fakeRedis struct {
	data     map[string]string
	getErr   error
	setCalls int
	delCalls int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	val, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.setCalls++
	f.data[key] = string(value.([]byte))
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.delCalls++
	for _, k := range keys {
		delete(f.data, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

type countingCatalog struct {
	windows []tariff.RateWindow
	calls   int
}

func (c *countingCatalog) ListActiveByTableType(ctx context.Context, tableTypeID id.ID) ([]tariff.RateWindow, error) {
	c.calls++
	return c.windows, nil
}

func testWindows(tableTypeID id.ID) []tariff.RateWindow {
	evening := tariff.NewRateWindow(tableTypeID, "evening", decimal.NewFromInt(450))
	start := tariff.NewTimeOfDay(18, 0)
	end := tariff.NewTimeOfDay(23, 0)
	evening.StartTime = &start
	evening.EndTime = &end
	evening.Priority = 10

	base := tariff.NewRateWindow(tableTypeID, "base", decimal.NewFromInt(300))
	return []tariff.RateWindow{*evening, *base}
}

func TestRateWindowCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	ttID := id.New()
	store := newFakeRedis()
	source := &countingCatalog{windows: testWindows(ttID)}
	c := NewRateWindowCache(store, source, time.Minute)

	first, err := c.ListActiveByTableType(ctx, ttID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, store.setCalls)

	// second read is served from the cache
	second, err := c.ListActiveByTableType(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, "evening", second[0].Name)
	assert.True(t, second[0].PricePerHour.Equal(decimal.NewFromInt(450)))
}

func TestRateWindowCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	ttID := id.New()
	store := newFakeRedis()
	source := &countingCatalog{windows: testWindows(ttID)}
	c := NewRateWindowCache(store, source, time.Minute)

	_, err := c.ListActiveByTableType(ctx, ttID)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, ttID))
	assert.Equal(t, 1, store.delCalls)

	_, err = c.ListActiveByTableType(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestRateWindowCache_ClubScopedKeys(t *testing.T) {
	ttID := id.New()
	store := newFakeRedis()
	source := &countingCatalog{windows: testWindows(ttID)}
	c := NewRateWindowCache(store, source, time.Minute)

	ctxA := tenant.WithClub(context.Background(), &tenant.Club{ID: "club-a", Slug: "a"})
	ctxB := tenant.WithClub(context.Background(), &tenant.Club{ID: "club-b", Slug: "b"})

	_, err := c.ListActiveByTableType(ctxA, ttID)
	require.NoError(t, err)
	_, err = c.ListActiveByTableType(ctxB, ttID)
	require.NoError(t, err)

	// distinct keys mean both reads hit the source
	assert.Equal(t, 2, source.calls)
	assert.Len(t, store.data, 2)
}

func TestRateWindowCache_CorruptEntryRefetches(t *testing.T) {
	ctx := context.Background()
	ttID := id.New()
	store := newFakeRedis()
	source := &countingCatalog{windows: testWindows(ttID)}
	c := NewRateWindowCache(store, source, time.Minute)

	store.data[c.key(ctx, ttID)] = "{not json"

	windows, err := c.ListActiveByTableType(ctx, ttID)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Equal(t, 1, source.calls)

	// refetch overwrote the corrupt entry
	var stored []tariff.RateWindow
	require.NoError(t, json.Unmarshal([]byte(store.data[c.key(ctx, ttID)]), &stored))
	assert.Len(t, stored, 2)
}

func TestRateWindowCache_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	ttID := id.New()
	store := newFakeRedis()
	store.getErr = assert.AnError
	source := &countingCatalog{windows: testWindows(ttID)}
	c := NewRateWindowCache(store, source, time.Minute)

	windows, err := c.ListActiveByTableType(ctx, ttID)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Equal(t, 1, source.calls)
}
