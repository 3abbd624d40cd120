package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/clock"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
)

// memStore is an in-memory Repository plus tx.Manager that mirrors the
// postgres semantics the service relies on: a per-item lock held until
// commit, and staged writes that only land when the transaction commits.
type memStore struct {
	mu        sync.Mutex
	records   map[id.ID]Record
	movements []Movement
	locks     map[id.ID]*sync.Mutex

	failAppend bool // inject ledger write failure
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[id.ID]Record),
		locks:   make(map[id.ID]*sync.Mutex),
	}
}

type memTxKey struct{}

type memTx struct {
	store    *memStore
	held     []*sync.Mutex
	pending  map[id.ID]Record
	appended []Movement
}

func (s *memStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t := &memTx{store: s, pending: make(map[id.ID]Record)}
	err := fn(context.WithValue(ctx, memTxKey{}, t))

	if err == nil {
		s.mu.Lock()
		for itemID, rec := range t.pending {
			s.records[itemID] = rec
		}
		s.movements = append(s.movements, t.appended...)
		s.mu.Unlock()
	}

	for _, l := range t.held {
		l.Unlock()
	}
	return err
}

func (s *memStore) itemLock(itemID id.ID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[itemID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[itemID] = l
	}
	return l
}

func (s *memStore) GetRecordForUpdate(ctx context.Context, itemID id.ID) (*Record, error) {
	t, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok {
		return nil, errors.New("GetRecordForUpdate outside transaction")
	}

	l := s.itemLock(itemID)
	l.Lock()
	t.held = append(t.held, l)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[itemID]
	if !ok {
		rec = *NewRecord(itemID)
		s.records[itemID] = rec
	}
	copied := rec
	return &copied, nil
}

func (s *memStore) GetRecord(ctx context.Context, itemID id.ID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[itemID]
	if !ok {
		rec = *NewRecord(itemID)
	}
	copied := rec
	return &copied, nil
}

func (s *memStore) UpdateRecord(ctx context.Context, rec *Record) error {
	t, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok {
		return errors.New("UpdateRecord outside transaction")
	}
	t.pending[rec.ItemID] = *rec
	return nil
}

func (s *memStore) AppendMovement(ctx context.Context, mv *Movement) error {
	if s.failAppend {
		return errors.New("ledger write failed")
	}
	t, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok {
		return errors.New("AppendMovement outside transaction")
	}
	t.appended = append(t.appended, *mv)
	return nil
}

func (s *memStore) ListMovements(ctx context.Context, itemID id.ID, filter MovementFilter) ([]Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Movement
	for _, mv := range s.movements {
		if mv.ItemID == itemID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (s *memStore) SumMovementDeltas(ctx context.Context, itemID id.ID) (types.Quantity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum types.Quantity
	for _, mv := range s.movements {
		if mv.ItemID == itemID {
			sum += mv.QuantityDelta
		}
	}
	return sum, nil
}

func (s *memStore) ListRecordsBelow(ctx context.Context, threshold types.Quantity) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Quantity <= threshold {
			out = append(out, rec)
		}
	}
	return out, nil
}

// seed writes a committed record directly, bypassing the service.
func (s *memStore) seed(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ItemID] = rec
}

func newTestService(store *memStore) *Service {
	return NewService(store, store, clock.NewFixed(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)))
}

func ref() Ref {
	return Ref{Type: "purchase", ID: id.New()}
}

func TestIncreaseStock_WeightedAverage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	batches := []struct {
		qty   types.Quantity
		price string
	}{
		{10, "100"},
		{5, "160"},
		{15, "80"},
	}

	for _, b := range batches {
		_, err := svc.IncreaseStock(ctx, IncreaseInput{
			ItemID:          itemID,
			Quantity:        b.qty,
			UnitImportPrice: types.MustMoney(b.price),
			Reference:       ref(),
		})
		require.NoError(t, err)
	}

	rec, err := svc.GetRecord(ctx, itemID)
	require.NoError(t, err)

	// (10*100 + 5*160 + 15*80) / 30 = 3000/30 = 100
	assert.Equal(t, types.Quantity(30), rec.Quantity)
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("100")),
		"want average 100, got %s", rec.AverageCost)
	require.NotNil(t, rec.LastRestockAt)

	// One ledger row per call; deltas sum to the final quantity and
	// each row carries the batch price, not the blended average.
	movements, err := svc.GetMovementHistory(ctx, itemID, MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 3)

	var sum types.Quantity
	for i, mv := range movements {
		sum += mv.QuantityDelta
		assert.Equal(t, KindImport, mv.Kind)
		assert.True(t, mv.UnitCost.Equal(types.MustMoney(batches[i].price)),
			"row %d: want batch price %s, got %s", i, batches[i].price, mv.UnitCost)
	}
	assert.Equal(t, rec.Quantity, sum)

	require.NoError(t, svc.VerifyLedger(ctx, itemID))
}

func TestIncreaseStock_Validation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          id.New(),
		Quantity:        0,
		UnitImportPrice: types.MustMoney("10"),
		Reference:       ref(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          id.New(),
		Quantity:        -3,
		UnitImportPrice: types.MustMoney("10"),
		Reference:       ref(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	// No records or ledger rows created by rejected calls.
	assert.Empty(t, store.movements)
}

func TestIncreaseStock_NegativePositionKeepsAverage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	// Oversold position at a known average.
	store.seed(Record{
		ID:          id.New(),
		ItemID:      itemID,
		Quantity:    -10,
		AverageCost: types.MustMoney("55"),
	})

	// Receipt that leaves the position non-positive: average must not move.
	rec, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        4,
		UnitImportPrice: types.MustMoney("200"),
		Reference:       ref(),
	})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(-6), rec.Quantity)
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("55")),
		"average must stay at 55 while position is non-positive, got %s", rec.AverageCost)

	// Receipt that brings the position positive blends across the
	// negative quantity without corrupting state.
	rec, err = svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        16,
		UnitImportPrice: types.MustMoney("100"),
		Reference:       ref(),
	})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(10), rec.Quantity)

	// (-6*55 + 16*100) / 10 = (1600-330)/10 = 127
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("127")),
		"want blended average 127, got %s", rec.AverageCost)
}

func TestDecreaseStock_ConsumesAtAverage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	_, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        10,
		UnitImportPrice: types.MustMoney("120"),
		Reference:       ref(),
	})
	require.NoError(t, err)

	rec, err := svc.DecreaseStock(ctx, DecreaseInput{
		ItemID:    itemID,
		Quantity:  4,
		Reference: Ref{Type: "order_item", ID: id.New()},
	})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(6), rec.Quantity)
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("120")),
		"decrease must not move the average, got %s", rec.AverageCost)

	movements, err := svc.GetMovementHistory(ctx, itemID, MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 2)

	sale := movements[1]
	assert.Equal(t, KindSale, sale.Kind)
	assert.Equal(t, types.Quantity(-4), sale.QuantityDelta)
	assert.Equal(t, types.Quantity(6), sale.QuantitySnapshot)
	assert.True(t, sale.UnitCost.Equal(types.MustMoney("120")),
		"COGS basis must be the average at time of sale")

	require.NoError(t, svc.VerifyLedger(ctx, itemID))
}

func TestDecreaseStock_InsufficientStock(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	_, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        3,
		UnitImportPrice: types.MustMoney("50"),
		Reference:       ref(),
	})
	require.NoError(t, err)

	_, err = svc.DecreaseStock(ctx, DecreaseInput{
		ItemID:    itemID,
		Quantity:  5,
		Reference: Ref{Type: "order_item", ID: id.New()},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Full rollback: quantity, average and ledger untouched.
	rec, err := svc.GetRecord(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(3), rec.Quantity)
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("50")))

	movements, err := svc.GetMovementHistory(ctx, itemID, MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestDecreaseStock_NeverMovedItem(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.DecreaseStock(ctx, DecreaseInput{
		ItemID:    id.New(),
		Quantity:  1,
		Reference: Ref{Type: "order_item", ID: id.New()},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err),
		"issue against a never-moved item must fail against the zero baseline")
}

func TestIncreaseStock_LedgerWriteFailureRollsBack(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	store.failAppend = true
	_, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        5,
		UnitImportPrice: types.MustMoney("10"),
		Reference:       ref(),
	})
	require.Error(t, err)

	store.failAppend = false
	rec, err := svc.GetRecord(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), rec.Quantity,
		"record update must roll back with the failed ledger write")
}

func TestDecreaseStock_ConcurrentNoOversell(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	const stock = 5
	const workers = 20

	_, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        stock,
		UnitImportPrice: types.MustMoney("10"),
		Reference:       ref(),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var succeeded, insufficient int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DecreaseStock(ctx, DecreaseInput{
				ItemID:    itemID,
				Quantity:  1,
				Reference: Ref{Type: "order_item", ID: id.New()},
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperror.IsInsufficientStock(err) {
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, stock, succeeded, "exactly one success per unit of stock")
	assert.EqualValues(t, workers-stock, insufficient)

	rec, err := svc.GetRecord(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(0), rec.Quantity, "stock must never go below zero")

	// Snapshots replay as a consistent prefix-sum sequence.
	movements, err := svc.GetMovementHistory(ctx, itemID, MovementFilter{})
	require.NoError(t, err)

	var running types.Quantity
	for i, mv := range movements {
		running += mv.QuantityDelta
		assert.Equal(t, mv.QuantitySnapshot, running, "row %d snapshot out of order", i)
	}
	require.NoError(t, svc.VerifyLedger(ctx, itemID))
}

func TestDecreaseStock_JointlyExceeding(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	itemID := id.New()

	_, err := svc.IncreaseStock(ctx, IncreaseInput{
		ItemID:          itemID,
		Quantity:        5,
		UnitImportPrice: types.MustMoney("10"),
		Reference:       ref(),
	})
	require.NoError(t, err)

	// Two issues of 3 individually fit but jointly exceed stock:
	// exactly one may win.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DecreaseStock(ctx, DecreaseInput{
				ItemID:    itemID,
				Quantity:  3,
				Reference: Ref{Type: "order_item", ID: id.New()},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
		} else {
			require.True(t, apperror.IsInsufficientStock(err))
			failed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)

	rec, err := svc.GetRecord(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(2), rec.Quantity)
}
