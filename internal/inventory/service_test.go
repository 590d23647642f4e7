package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type memoryLedger struct {
	nextID    int64
	agencies  map[int64]*AgencyState
	products  map[int64]*ProductState
	counters  map[int64]*agencyCounters
	movements []Movement
	bumps     int
}

type agencyCounters struct {
	currentStock float64
	totalValue   float64
	lastSupplyAt time.Time
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		nextID:   1,
		agencies: make(map[int64]*AgencyState),
		products: make(map[int64]*ProductState),
		counters: make(map[int64]*agencyCounters),
	}
}

// WithTx simulates all-or-nothing by snapshotting and restoring on error.
func (l *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := l.clone()
	if err := fn(ctx, (*memoryTx)(l)); err != nil {
		l.restore(snapshot)
		return err
	}
	return nil
}

func (l *memoryLedger) clone() *memoryLedger {
	c := newMemoryLedger()
	c.nextID = l.nextID
	for id, a := range l.agencies {
		clone := *a
		c.agencies[id] = &clone
	}
	for id, p := range l.products {
		clone := *p
		c.products[id] = &clone
	}
	for id, cnt := range l.counters {
		clone := *cnt
		c.counters[id] = &clone
	}
	c.movements = append([]Movement(nil), l.movements...)
	return c
}

func (l *memoryLedger) restore(snapshot *memoryLedger) {
	l.nextID = snapshot.nextID
	l.agencies = snapshot.agencies
	l.products = snapshot.products
	l.counters = snapshot.counters
	l.movements = snapshot.movements
}

func (l *memoryLedger) List(_ context.Context, filter ListFilter) ([]Movement, int, error) {
	var out []Movement
	for i := len(l.movements) - 1; i >= 0; i-- {
		m := l.movements[i]
		if filter.AgencyID > 0 && m.AgencyID != filter.AgencyID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, len(out), nil
}

func (l *memoryLedger) Bump(context.Context) error {
	l.bumps++
	return nil
}

type memoryTx memoryLedger

func (t *memoryTx) GetAgencyForUpdate(_ context.Context, agencyID int64) (AgencyState, error) {
	a, ok := t.agencies[agencyID]
	if !ok {
		return AgencyState{}, shared.ErrNotFound
	}
	return *a, nil
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, productID int64) (ProductState, error) {
	p, ok := t.products[productID]
	if !ok {
		return ProductState{}, shared.ErrNotFound
	}
	return *p, nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m Movement) (int64, error) {
	m.ID = t.nextID
	t.nextID++
	t.movements = append(t.movements, m)
	return m.ID, nil
}

func (t *memoryTx) IncrementStock(_ context.Context, productID int64, qty float64) error {
	t.products[productID].StockCurrent += qty
	return nil
}

func (t *memoryTx) DecrementStockGuarded(_ context.Context, productID int64, qty float64) error {
	p := t.products[productID]
	if p.StockCurrent < qty {
		return shared.ErrInsufficientStock
	}
	p.StockCurrent -= qty
	return nil
}

func (t *memoryTx) ApplySupply(_ context.Context, agencyID int64, qty, value float64, at time.Time) error {
	c := t.counter(agencyID)
	c.currentStock += qty
	c.totalValue += value
	c.lastSupplyAt = at
	return nil
}

func (t *memoryTx) ApplyWithdrawal(_ context.Context, agencyID int64, qty, value float64) error {
	c := t.counter(agencyID)
	c.currentStock -= qty
	c.totalValue -= value
	return nil
}

func (t *memoryTx) AdjustAgencyStock(_ context.Context, agencyID int64, qty, value float64) error {
	c := t.counter(agencyID)
	c.currentStock += qty
	c.totalValue += value
	if c.currentStock < 0 {
		c.currentStock = 0
	}
	if c.totalValue < 0 {
		c.totalValue = 0
	}
	return nil
}

func (t *memoryTx) counter(agencyID int64) *agencyCounters {
	c, ok := t.counters[agencyID]
	if !ok {
		c = &agencyCounters{}
		t.counters[agencyID] = c
	}
	return c
}

func seedLedger() *memoryLedger {
	ledger := newMemoryLedger()
	ledger.agencies[1] = &AgencyState{ID: 1, Type: "agency", IsActive: true}
	ledger.agencies[2] = &AgencyState{ID: 2, Type: "agency", IsActive: false}
	ledger.products[10] = &ProductState{ID: 10, AgencyID: 1, Name: "Trail Mix", CostPrice: 50, StockCurrent: 20, IsActive: true}
	return ledger
}

func TestRecordIncomingUpdatesStockAndCounters(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	movement, err := svc.RecordIncoming(context.Background(), 1, RecordInput{ProductID: 10, Quantity: 30, UnitPrice: 50}, 7)
	require.NoError(t, err)
	require.Equal(t, TypeIncoming, movement.Type)
	require.InDelta(t, 1500, movement.TotalValue, 0.0001)

	require.InDelta(t, 50, ledger.products[10].StockCurrent, 0.0001)
	require.InDelta(t, 30, ledger.counters[1].currentStock, 0.0001)
	require.InDelta(t, 1500, ledger.counters[1].totalValue, 0.0001)
	require.False(t, ledger.counters[1].lastSupplyAt.IsZero())
	require.Equal(t, 1, ledger.bumps)
}

func TestRecordOutgoingComputesProfit(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	movement, err := svc.RecordOutgoing(context.Background(), 1, RecordInput{ProductID: 10, Quantity: 10, UnitPrice: 80}, 7)
	require.NoError(t, err)
	require.Equal(t, TypeOutgoing, movement.Type)
	require.InDelta(t, 300, movement.Profit, 0.0001)
	require.InDelta(t, 50, movement.CostPrice, 0.0001)
	require.InDelta(t, 10, ledger.products[10].StockCurrent, 0.0001)
}

func TestRecordOutgoingInsufficientStockRollsBack(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	_, err := svc.RecordOutgoing(context.Background(), 1, RecordInput{ProductID: 10, Quantity: 100, UnitPrice: 80}, 7)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.InDelta(t, 20, ledger.products[10].StockCurrent, 0.0001)
	require.Empty(t, ledger.movements)
	require.Zero(t, ledger.bumps)
}

func TestRecordIncomingInactiveAgency(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	_, err := svc.RecordIncoming(context.Background(), 2, RecordInput{ProductID: 10, Quantity: 5, UnitPrice: 50}, 7)
	require.ErrorIs(t, err, shared.ErrInactiveAgency)
	require.Empty(t, ledger.movements)
}

func TestRecordIncomingForeignProduct(t *testing.T) {
	ledger := seedLedger()
	ledger.products[11] = &ProductState{ID: 11, AgencyID: 9, Name: "Soda", CostPrice: 10, StockCurrent: 5, IsActive: true}
	svc := NewService(ledger, nil, ledger)

	_, err := svc.RecordIncoming(context.Background(), 1, RecordInput{ProductID: 11, Quantity: 5, UnitPrice: 10}, 7)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordRejectsNonPositiveQuantity(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	_, err := svc.RecordIncoming(context.Background(), 1, RecordInput{ProductID: 10, Quantity: 0, UnitPrice: 50}, 7)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordOutgoing(context.Background(), 1, RecordInput{ProductID: 10, Quantity: -3, UnitPrice: 80}, 7)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordAdjustmentAddsStock(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	movement, err := svc.RecordAdjustment(context.Background(), 1, AdjustInput{ProductID: 10, Quantity: 5, Notes: "recount"}, 7)
	require.NoError(t, err)
	require.Equal(t, TypeAdjustment, movement.Type)
	require.InDelta(t, 5, movement.Quantity, 0.0001)
	require.InDelta(t, 250, movement.TotalValue, 0.0001)

	require.InDelta(t, 25, ledger.products[10].StockCurrent, 0.0001)
	require.InDelta(t, 5, ledger.counters[1].currentStock, 0.0001)
	require.InDelta(t, 250, ledger.counters[1].totalValue, 0.0001)
	require.Equal(t, 1, ledger.bumps)
}

func TestRecordAdjustmentRemovesStockGuarded(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	movement, err := svc.RecordAdjustment(context.Background(), 1, AdjustInput{ProductID: 10, Quantity: -8}, 7)
	require.NoError(t, err)
	require.InDelta(t, -8, movement.Quantity, 0.0001)
	require.InDelta(t, -400, movement.TotalValue, 0.0001)
	require.InDelta(t, 12, ledger.products[10].StockCurrent, 0.0001)

	_, err = svc.RecordAdjustment(context.Background(), 1, AdjustInput{ProductID: 10, Quantity: -100}, 7)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.InDelta(t, 12, ledger.products[10].StockCurrent, 0.0001)
	require.Len(t, ledger.movements, 1)
}

func TestRecordAdjustmentRejectsZeroQuantity(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	_, err := svc.RecordAdjustment(context.Background(), 1, AdjustInput{ProductID: 10, Quantity: 0}, 7)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, ledger.movements)
}

func TestListFiltersByTypeNewestFirst(t *testing.T) {
	ledger := seedLedger()
	svc := NewService(ledger, nil, ledger)

	_, err := svc.RecordIncoming(context.Background(), 1, RecordInput{ProductID: 10, Quantity: 5, UnitPrice: 50}, 7)
	require.NoError(t, err)
	_, err = svc.RecordOutgoing(context.Background(), 1, RecordInput{ProductID: 10, Quantity: 2, UnitPrice: 80}, 7)
	require.NoError(t, err)

	movements, pagination, err := svc.List(context.Background(), ListFilter{AgencyID: 1, Type: TypeOutgoing})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, TypeOutgoing, movements[0].Type)
	require.Equal(t, 1, pagination.Total)
}
