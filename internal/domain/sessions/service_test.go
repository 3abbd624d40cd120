package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/clock"
	"cueclub/internal/core/id"
	"cueclub/internal/core/types"
	"cueclub/internal/domain/catalogs/item"
	"cueclub/internal/domain/catalogs/tabletype"
	"cueclub/internal/domain/discount"
	"cueclub/internal/domain/inventory"
	"cueclub/internal/domain/tariff"
	"cueclub/pkg/numerator"
)

// --- fakes ---

// passTx runs the function directly; transactional semantics are
// exercised in the inventory package tests.
type passTx struct{}

func (passTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type tableStore struct {
	types  map[id.ID]*tabletype.TableType
	tables map[id.ID]*tabletype.Table
}

func newTableStore() *tableStore {
	return &tableStore{
		types:  make(map[id.ID]*tabletype.TableType),
		tables: make(map[id.ID]*tabletype.Table),
	}
}

func (s *tableStore) Create(ctx context.Context, tt *tabletype.TableType) error {
	s.types[tt.ID] = tt
	return nil
}
func (s *tableStore) Update(ctx context.Context, tt *tabletype.TableType) error {
	s.types[tt.ID] = tt
	return nil
}
func (s *tableStore) GetByID(ctx context.Context, ttID id.ID) (*tabletype.TableType, error) {
	if tt, ok := s.types[ttID]; ok {
		cp := *tt
		return &cp, nil
	}
	return nil, apperror.NewNotFound("table type", ttID)
}
func (s *tableStore) List(ctx context.Context, includeInactive bool) ([]tabletype.TableType, error) {
	var out []tabletype.TableType
	for _, tt := range s.types {
		out = append(out, *tt)
	}
	return out, nil
}
func (s *tableStore) CreateTable(ctx context.Context, tbl *tabletype.Table) error {
	s.tables[tbl.ID] = tbl
	return nil
}
func (s *tableStore) UpdateTable(ctx context.Context, tbl *tabletype.Table) error {
	s.tables[tbl.ID] = tbl
	return nil
}
func (s *tableStore) GetTableByID(ctx context.Context, tableID id.ID) (*tabletype.Table, error) {
	if tbl, ok := s.tables[tableID]; ok {
		cp := *tbl
		return &cp, nil
	}
	return nil, apperror.NewNotFound("table", tableID)
}
func (s *tableStore) ListTables(ctx context.Context, tableTypeID *id.ID) ([]tabletype.Table, error) {
	var out []tabletype.Table
	for _, tbl := range s.tables {
		out = append(out, *tbl)
	}
	return out, nil
}

type itemStore struct {
	items map[id.ID]*item.Item
}

func newItemStore() *itemStore { return &itemStore{items: make(map[id.ID]*item.Item)} }

func (s *itemStore) Create(ctx context.Context, it *item.Item) error {
	s.items[it.ID] = it
	return nil
}
func (s *itemStore) Update(ctx context.Context, it *item.Item) error {
	s.items[it.ID] = it
	return nil
}
func (s *itemStore) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	if it, ok := s.items[itemID]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, apperror.NewNotFound("item", itemID)
}
func (s *itemStore) GetBySKU(ctx context.Context, sku string) (*item.Item, error) {
	for _, it := range s.items {
		if it.SKU != nil && *it.SKU == sku {
			cp := *it
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("item", sku)
}
func (s *itemStore) List(ctx context.Context, filter item.ListFilter) ([]item.Item, error) {
	var out []item.Item
	for _, it := range s.items {
		out = append(out, *it)
	}
	return out, nil
}

type stockStore struct {
	mu        sync.Mutex
	records   map[id.ID]*inventory.Record
	movements []inventory.Movement
}

func newStockStore() *stockStore {
	return &stockStore{records: make(map[id.ID]*inventory.Record)}
}

func (s *stockStore) GetRecord(ctx context.Context, itemID id.ID) (*inventory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[itemID]; ok {
		cp := *rec
		return &cp, nil
	}
	return inventory.NewRecord(itemID), nil
}

func (s *stockStore) GetRecordForUpdate(ctx context.Context, itemID id.ID) (*inventory.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[itemID]; ok {
		cp := *rec
		return &cp, nil
	}
	rec := inventory.NewRecord(itemID)
	cp := *rec
	s.records[itemID] = rec
	return &cp, nil
}

func (s *stockStore) UpdateRecord(ctx context.Context, rec *inventory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ItemID] = &cp
	return nil
}

func (s *stockStore) AppendMovement(ctx context.Context, mv *inventory.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, *mv)
	return nil
}

func (s *stockStore) ListMovements(ctx context.Context, itemID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Movement
	for _, mv := range s.movements {
		if mv.ItemID == itemID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (s *stockStore) SumMovementDeltas(ctx context.Context, itemID id.ID) (types.Quantity, error) {
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

func (s *stockStore) ListRecordsBelow(ctx context.Context, threshold types.Quantity) ([]inventory.Record, error) {
	return nil, nil
}

type discountStore struct {
	byCode map[string]*discount.Discount
}

func newDiscountStore() *discountStore {
	return &discountStore{byCode: make(map[string]*discount.Discount)}
}

func (s *discountStore) Create(ctx context.Context, d *discount.Discount) error {
	s.byCode[d.Code] = d
	return nil
}
func (s *discountStore) Update(ctx context.Context, d *discount.Discount) error {
	s.byCode[d.Code] = d
	return nil
}
func (s *discountStore) GetByID(ctx context.Context, discountID id.ID) (*discount.Discount, error) {
	for _, d := range s.byCode {
		if d.ID == discountID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("discount", discountID)
}
func (s *discountStore) GetByCode(ctx context.Context, code string) (*discount.Discount, error) {
	if d, ok := s.byCode[code]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, apperror.NewNotFound("discount", code)
}
func (s *discountStore) List(ctx context.Context, includeInactive bool) ([]discount.Discount, error) {
	return nil, nil
}
func (s *discountStore) IncrementUsage(ctx context.Context, discountID id.ID) (bool, error) {
	for _, d := range s.byCode {
		if d.ID == discountID {
			if d.UsageLimit > 0 && d.UsedCount >= d.UsageLimit {
				return false, nil
			}
			d.UsedCount++
			return true, nil
		}
	}
	return false, apperror.NewNotFound("discount", discountID)
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[id.ID]*Session
	items    map[id.ID]*OrderItem
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[id.ID]*Session),
		items:    make(map[id.ID]*OrderItem),
	}
}

func (s *sessionStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}
func (s *sessionStore) Update(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}
func (s *sessionStore) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, apperror.NewNotFound("session", sessionID)
}
func (s *sessionStore) GetActiveByTable(ctx context.Context, tableID id.ID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.TableID == tableID && sess.IsOpen() {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("session", tableID)
}
func (s *sessionStore) List(ctx context.Context, filter ListFilter) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Session
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out, nil
}
func (s *sessionStore) AddItem(ctx context.Context, oi *OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *oi
	s.items[oi.ID] = &cp
	return nil
}
func (s *sessionStore) GetItem(ctx context.Context, orderItemID id.ID) (*OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if oi, ok := s.items[orderItemID]; ok {
		cp := *oi
		return &cp, nil
	}
	return nil, apperror.NewNotFound("order item", orderItemID)
}
func (s *sessionStore) RemoveItem(ctx context.Context, orderItemID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, orderItemID)
	return nil
}
func (s *sessionStore) ListItems(ctx context.Context, sessionID id.ID) ([]OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OrderItem
	for _, oi := range s.items {
		if oi.SessionID == sessionID {
			out = append(out, *oi)
		}
	}
	return out, nil
}

// seqRow / seqQuerier back the receipt numerator with a plain counter.
type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct {
	mu  sync.Mutex
	val int64
}

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.val++
	return &seqRow{val: q.val}
}

type staticCatalog struct {
	windows []tariff.RateWindow
}

func (c *staticCatalog) ListActiveByTableType(ctx context.Context, tableTypeID id.ID) ([]tariff.RateWindow, error) {
	return c.windows, nil
}

// --- fixture ---

type fixture struct {
	svc       *Service
	sessions  *sessionStore
	tables    *tableStore
	items     *itemStore
	stock     *stockStore
	discounts *discountStore
	catalog   *staticCatalog
	clock     *clock.Fixed

	tableID     id.ID
	tableTypeID id.ID
}

// openAt is a Monday evening; the fixture table type defaults to 300/h.
var openAt = time.Date(2025, 7, 14, 20, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tables := newTableStore()
	tt := tabletype.NewTableType("russian", types.MustMoney("300"))
	require.NoError(t, tables.Create(context.Background(), tt))
	tbl := tabletype.NewTable(tt.ID, 1, "T1")
	require.NoError(t, tables.CreateTable(context.Background(), tbl))

	items := newItemStore()
	stock := newStockStore()
	discounts := newDiscountStore()
	sessions := newSessionStore()
	catalog := &staticCatalog{}
	clk := clock.NewFixed(openAt)

	rules, err := discount.NewRuleEngine()
	require.NoError(t, err)

	invSvc := inventory.NewService(stock, passTx{}, clk)
	discSvc := discount.NewService(discounts, rules, passTx{})
	resolver := tariff.NewResolver(catalog)
	num := numerator.New(&seqQuerier{})

	svc := NewService(sessions, tables, items, invSvc, resolver, discSvc, num, passTx{}, clk)

	return &fixture{
		svc:       svc,
		sessions:  sessions,
		tables:    tables,
		items:     items,
		stock:     stock,
		discounts: discounts,
		catalog:   catalog,
		clock:     clk,

		tableID:     tbl.ID,
		tableTypeID: tt.ID,
	}
}

func (f *fixture) sellableItem(t *testing.T, name, price string, tracksStock bool) *item.Item {
	t.Helper()
	it := item.NewItem(name, item.CategoryBar, types.MustMoney(price))
	it.TracksStock = tracksStock
	require.NoError(t, f.items.Create(context.Background(), it))
	return it
}

func (f *fixture) stockUp(t *testing.T, itemID id.ID, qty types.Quantity, price string) {
	t.Helper()
	_, err := f.svc.stock.IncreaseStock(context.Background(), inventory.IncreaseInput{
		ItemID:          itemID,
		Quantity:        qty,
		UnitImportPrice: types.MustMoney(price),
		Reference:       inventory.Ref{Type: "purchase", ID: id.New()},
	})
	require.NoError(t, err)
}

// --- tests ---

func TestOpen_FreezesWindowRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Evening window 18:00-23:00 at 450/h covers the opening instant.
	w := tariff.NewRateWindow(f.tableTypeID, "evening", types.MustMoney("450"))
	from, until := tariff.NewTimeOfDay(18, 0), tariff.NewTimeOfDay(23, 0)
	w.StartTime, w.EndTime = &from, &until
	f.catalog.windows = []tariff.RateWindow{*w}

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, sess.Status)
	assert.True(t, sess.FrozenRatePerHour.Equal(types.MustMoney("450")),
		"want frozen rate 450, got %s", sess.FrozenRatePerHour)
	assert.Equal(t, openAt, sess.StartAt)
}

func TestOpen_FallsBackToTypeDefault(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.Open(context.Background(), OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	assert.True(t, sess.FrozenRatePerHour.Equal(types.MustMoney("300")),
		"want type default 300, got %s", sess.FrozenRatePerHour)
}

func TestOpen_OccupiedTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	_, err = f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTableOccupied, appErr.Code)
}

func TestAddItem_IssuesStockAndRecordsCostBasis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	beer := f.sellableItem(t, "beer", "50", true)
	f.stockUp(t, beer.ID, 24, "30")

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	oi, err := f.svc.AddItem(ctx, AddItemInput{
		SessionID: sess.ID,
		ItemID:    beer.ID,
		Quantity:  2,
	})
	require.NoError(t, err)

	assert.True(t, oi.UnitPrice.Equal(types.MustMoney("50")))
	assert.True(t, oi.Total.Equal(types.MustMoney("100")))
	// Cost basis is the stock average, not the selling price.
	assert.True(t, oi.UnitCost.Equal(types.MustMoney("30")),
		"want cost basis 30, got %s", oi.UnitCost)

	rec, err := f.svc.stock.GetRecord(ctx, beer.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(22), rec.Quantity)

	movements, err := f.stock.ListMovements(ctx, beer.ID, inventory.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	sale := movements[1]
	assert.Equal(t, inventory.KindSale, sale.Kind)
	assert.Equal(t, "order_item", sale.ReferenceType)
	assert.Equal(t, oi.ID, sale.ReferenceID)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	beer := f.sellableItem(t, "beer", "50", true)
	f.stockUp(t, beer.ID, 1, "30")

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, AddItemInput{
		SessionID: sess.ID,
		ItemID:    beer.ID,
		Quantity:  2,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestAddItem_UntrackedItemSkipsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rental := f.sellableItem(t, "cue rental", "100", false)

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	oi, err := f.svc.AddItem(ctx, AddItemInput{
		SessionID: sess.ID,
		ItemID:    rental.ID,
		Quantity:  1,
	})
	require.NoError(t, err)
	assert.True(t, oi.UnitCost.IsZero())

	movements, err := f.stock.ListMovements(ctx, rental.ID, inventory.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestRemoveItem_ReturnsStockAtCostBasis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	beer := f.sellableItem(t, "beer", "50", true)
	f.stockUp(t, beer.ID, 10, "30")

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	oi, err := f.svc.AddItem(ctx, AddItemInput{SessionID: sess.ID, ItemID: beer.ID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveItem(ctx, sess.ID, oi.ID, nil))

	rec, err := f.svc.stock.GetRecord(ctx, beer.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(10), rec.Quantity)
	// Returning at the recorded basis keeps the average intact.
	assert.True(t, rec.AverageCost.Equal(types.MustMoney("30")),
		"want average 30 after return, got %s", rec.AverageCost)

	movements, err := f.stock.ListMovements(ctx, beer.ID, inventory.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 3)
	ret := movements[2]
	assert.Equal(t, inventory.KindReturn, ret.Kind)
	assert.Equal(t, types.Quantity(3), ret.QuantityDelta)

	items, err := f.sessions.ListItems(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClose_PricesTimeItemsAndDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	beer := f.sellableItem(t, "beer", "50", true)
	f.stockUp(t, beer.ID, 24, "30")

	// 10% off for sessions over an hour.
	expr := "playMinutes >= 60"
	d := discount.NewDiscount("LONGPLAY", "10% long play", discount.TypePercent, types.MustMoney("10"))
	d.Eligibility = &expr
	require.NoError(t, f.discounts.Create(ctx, d))

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, AddItemInput{SessionID: sess.ID, ItemID: beer.ID, Quantity: 2})
	require.NoError(t, err)

	// Two hours of play at the frozen 300/h (no windows configured).
	f.clock.Advance(2 * time.Hour)
	code := "LONGPLAY"
	closed, err := f.svc.Close(ctx, CloseInput{SessionID: sess.ID, DiscountCode: &code})
	require.NoError(t, err)

	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, 120, closed.PlayMinutes)
	assert.True(t, closed.TimeCost.Equal(types.MustMoney("600")),
		"want time cost 600, got %s", closed.TimeCost)
	assert.True(t, closed.ItemsTotal.Equal(types.MustMoney("100")))
	// (600 + 100) * 10% = 70
	assert.True(t, closed.DiscountAmount.Equal(types.MustMoney("70")),
		"want discount 70, got %s", closed.DiscountAmount)
	assert.True(t, closed.Total.Equal(types.MustMoney("630")),
		"want total 630, got %s", closed.Total)
	assert.Equal(t, "RCP-2025-00001", closed.ReceiptNumber)

	// One use consumed.
	stored, err := f.discounts.GetByCode(ctx, "LONGPLAY")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestClose_IneligibleDiscountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expr := "playMinutes >= 180"
	d := discount.NewDiscount("MARATHON", "marathon", discount.TypePercent, types.MustMoney("20"))
	d.Eligibility = &expr
	require.NoError(t, f.discounts.Create(ctx, d))

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	code := "MARATHON"
	_, err = f.svc.Close(ctx, CloseInput{SessionID: sess.ID, DiscountCode: &code})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDiscountNotUsable, appErr.Code)

	// The failed close left the session open and unnumbered.
	still, err := f.svc.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, still.Status)
	assert.Empty(t, still.ReceiptNumber)
}

func TestClose_UsesRequestEndInstant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	// Bill requested after 90 minutes; settled 20 minutes later.
	f.clock.Advance(90 * time.Minute)
	_, err = f.svc.RequestEnd(ctx, sess.ID)
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	closed, err := f.svc.Close(ctx, CloseInput{SessionID: sess.ID})
	require.NoError(t, err)

	assert.Equal(t, 90, closed.PlayMinutes)
	// 1.5h at 300/h.
	assert.True(t, closed.TimeCost.Equal(types.MustMoney("450")),
		"want time cost 450, got %s", closed.TimeCost)
}

func TestRequestEnd_FreezesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rental := f.sellableItem(t, "cue rental", "100", false)

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	_, err = f.svc.RequestEnd(ctx, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, AddItemInput{SessionID: sess.ID, ItemID: rental.ID, Quantity: 1})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSessionClosed, appErr.Code)

	// Idempotent second request.
	again, err := f.svc.RequestEnd(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingEnd, again.Status)
}

func TestClosedSessionIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Close(ctx, CloseInput{SessionID: sess.ID})
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, CloseInput{SessionID: sess.ID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSessionClosed, appErr.Code)

	_, err = f.svc.RequestEnd(ctx, sess.ID)
	require.Error(t, err)
}

func TestPay_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)

	// Paying an open session is refused.
	_, err = f.svc.Pay(ctx, sess.ID, PaymentCash)
	require.Error(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Close(ctx, CloseInput{SessionID: sess.ID})
	require.NoError(t, err)

	paid, err := f.svc.Pay(ctx, sess.ID, PaymentCard)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, PaymentCard, *paid.PaymentMethod)
	require.NotNil(t, paid.PaidAt)

	// Double payment is refused.
	_, err = f.svc.Pay(ctx, sess.ID, PaymentCash)
	require.Error(t, err)

	// The table is free again after close.
	_, err = f.svc.Open(ctx, OpenInput{TableID: f.tableID})
	require.NoError(t, err)
}

func TestPay_InvalidMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Pay(context.Background(), id.New(), PaymentMethod("crypto"))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}
