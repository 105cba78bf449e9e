package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

type stubStrategy struct{ name string }

func (s stubStrategy) Name() string     { return s.name }
func (s stubStrategy) NameHash() string { return order.NameHash(s.name) }

var t0 = time.Date(2024, 5, 4, 13, 0, 0, 0, time.UTC)

func newOrder(strategy order.Strategy, side order.Side, ot order.OrderType) *order.Order {
	trade := order.NewTrade("1.23", 123, 0, strategy, t0)
	return trade.CreateOrder(side, ot, t0)
}

func TestBlotterInsertAndLookup(t *testing.T) {
	b := NewBlotter("1.23")
	s := stubStrategy{name: "scalper"}
	o := newOrder(s, order.Back, order.Limit{Price: 2.02, Size: 10})
	b.Insert(o)

	got, ok := b.Order(o.ID)
	require.True(t, ok)
	assert.Same(t, o, got)
	assert.True(t, b.Has(o.ID))
	assert.True(t, b.HasTrade(o.Trade.ID))
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.StrategyOrders(s), 1)
	assert.Len(t, b.StrategySelectionOrders(s, 123, 0), 1)
}

func TestBlotterReinsertDoesNotDuplicate(t *testing.T) {
	b := NewBlotter("1.23")
	s := stubStrategy{name: "scalper"}
	o := newOrder(s, order.Back, order.Limit{Price: 2.02, Size: 10})
	b.Insert(o)
	b.Insert(o)

	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.LiveOrders(), 1)
	assert.Len(t, b.StrategyOrders(s), 1)
	assert.Len(t, b.StrategySelectionOrders(s, 123, 0), 1)
	assert.Len(t, b.TradeOrders(o.Trade.ID), 1)
}

func TestBlotterLiveOrders(t *testing.T) {
	b := NewBlotter("1.23")
	s := stubStrategy{name: "scalper"}
	a := newOrder(s, order.Back, order.Limit{Price: 2.02, Size: 10})
	c := newOrder(s, order.Lay, order.Limit{Price: 3.0, Size: 5})
	b.Insert(a)
	b.Insert(c)
	require.True(t, b.HasLiveOrders())

	require.NoError(t, a.Executable())
	require.NoError(t, a.ExecutionComplete())
	assert.Len(t, b.LiveOrders(), 1)

	b.CompleteOrder(a)
	require.NoError(t, c.Violation("control", "rejected"))
	assert.False(t, b.HasLiveOrders())
	assert.Empty(t, b.LiveOrders())
	// closed orders remain queryable
	assert.True(t, b.Has(a.ID))
}

func TestBlotterProcessClosedMarket(t *testing.T) {
	b := NewBlotter("1.23")
	o := newOrder(stubStrategy{name: "scalper"}, order.Back, order.Limit{Price: 2.02, Size: 10})
	b.Insert(o)

	b.ProcessClosedMarket(&resources.MarketBook{
		MarketID: "1.23",
		Status:   resources.MarketStatusClosed,
		Runners:  []resources.RunnerBook{{SelectionID: 123, Status: "WINNER"}},
	})
	assert.Equal(t, "WINNER", o.RunnerStatus)
}

func TestBlotterProcessClearedOrders(t *testing.T) {
	b := NewBlotter("1.23")
	o := newOrder(stubStrategy{name: "scalper"}, order.Back, order.Limit{Price: 2.02, Size: 10})
	o.BetID = "555"
	b.Insert(o)

	byRef := resources.ClearedOrder{CustomerOrderRef: o.CustomerOrderRef(), Profit: 4.2}
	settled := b.ProcessClearedOrders(&resources.ClearedOrders{MarketID: "1.23", Orders: []resources.ClearedOrder{byRef}})
	require.Len(t, settled, 1)
	require.NotNil(t, o.Cleared)
	assert.Equal(t, 4.2, o.Cleared.Profit)

	// falls back to bet id when the ref is foreign
	o.Cleared = nil
	byBet := resources.ClearedOrder{BetID: "555", CustomerOrderRef: "somebodyIelse", Profit: 1.0}
	settled = b.ProcessClearedOrders(&resources.ClearedOrders{MarketID: "1.23", Orders: []resources.ClearedOrder{byBet}})
	require.Len(t, settled, 1)
	assert.Equal(t, 1.0, o.Cleared.Profit)

	unknown := resources.ClearedOrder{BetID: "999", CustomerOrderRef: "xIy"}
	settled = b.ProcessClearedOrders(&resources.ClearedOrders{MarketID: "1.23", Orders: []resources.ClearedOrder{unknown}})
	assert.Empty(t, settled)
}
