package sink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

type memoryStore struct {
	mu      sync.Mutex
	orders  []ClearedOrderRecord
	markets []ClearedMarketRecord
}

func (s *memoryStore) SaveClearedOrders(_ context.Context, records []ClearedOrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, records...)
	return nil
}

func (s *memoryStore) SaveClearedMarkets(_ context.Context, records []ClearedMarketRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets = append(s.markets, records...)
	return nil
}

type stubStrategy struct{ name string }

func (s stubStrategy) Name() string     { return s.name }
func (s stubStrategy) NameHash() string { return order.NameHash(s.name) }

func TestRunnerPersistsSettledOrders(t *testing.T) {
	store := &memoryStore{}
	r := NewRunner("pg", store, 8)

	t0 := time.Date(2024, 5, 4, 13, 0, 0, 0, time.UTC)
	trade := order.NewTrade("1.23", 123, 0, stubStrategy{name: "scalper"}, t0)
	o := trade.CreateOrder(order.Back, order.Limit{Price: 2.02, Size: 5}, t0)
	o.BetID = "555"
	o.RunnerStatus = "WINNER"
	o.Cleared = &resources.ClearedOrder{
		PriceMatched: 2.02,
		SizeSettled:  5,
		Profit:       4.845,
		SettledDate:  t0.Add(time.Hour),
	}

	r.ProcessSettledOrders([]*order.Order{o, {ID: "unsettled"}})
	r.Shutdown()

	require.Len(t, store.orders, 1)
	rec := store.orders[0]
	assert.Equal(t, o.ID, rec.OrderID)
	assert.Equal(t, "scalper", rec.Strategy)
	assert.Equal(t, "LIMIT", rec.OrderKind)
	assert.Equal(t, 4.845, rec.Profit)
	assert.Equal(t, "WINNER", rec.RunnerStatus)
}

func TestRunnerPersistsClearedMarkets(t *testing.T) {
	store := &memoryStore{}
	r := NewRunner("pg", store, 8)

	r.ProcessClearedMarkets(&resources.ClearedMarkets{
		Markets: []resources.ClearedMarket{{MarketID: "1.23", Profit: 10, BetCount: 3}},
	})
	r.ProcessClearedMarkets(nil)
	r.Shutdown()

	require.Len(t, store.markets, 1)
	assert.Equal(t, "1.23", store.markets[0].MarketID)
	assert.Equal(t, 3, store.markets[0].BetCount)
}

func TestRunnerShutdownIdempotent(t *testing.T) {
	r := NewRunner("pg", &memoryStore{}, 1)
	r.Shutdown()
	r.Shutdown()
}
