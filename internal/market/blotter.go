// Package market holds the per-market state: the book snapshot, the blotter
// of orders with its exposure engine, and the registry of active markets.
package market

import (
	"sort"

	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

type selectionKey struct {
	strategy    order.Strategy
	selectionID int64
	handicap    float64
}

// Blotter indexes every order for one market. The id map keeps closed orders
// queryable for settlement; the live list only ever shrinks when an order
// completes. Indices are rebuilt on insert, never on mutation of an existing
// order.
type Blotter struct {
	MarketID string

	orders          map[string]*order.Order
	liveOrders      []*order.Order
	tradeOrders     map[string][]*order.Order
	strategyOrders  map[order.Strategy][]*order.Order
	selectionOrders map[selectionKey][]*order.Order
}

// NewBlotter creates an empty blotter for a market.
func NewBlotter(marketID string) *Blotter {
	return &Blotter{
		MarketID:        marketID,
		orders:          make(map[string]*order.Order),
		tradeOrders:     make(map[string][]*order.Order),
		strategyOrders:  make(map[order.Strategy][]*order.Order),
		selectionOrders: make(map[selectionKey][]*order.Order),
	}
}

// Insert registers an order under every index. Re-inserting an id replaces
// the previous entry so index membership reflects only the latest state.
func (b *Blotter) Insert(o *order.Order) {
	if previous, ok := b.orders[o.ID]; ok {
		b.removeFromIndices(previous)
	}
	b.orders[o.ID] = o
	b.liveOrders = append(b.liveOrders, o)
	b.tradeOrders[o.Trade.ID] = append(b.tradeOrders[o.Trade.ID], o)
	strategy := o.Trade.Strategy
	b.strategyOrders[strategy] = append(b.strategyOrders[strategy], o)
	key := selectionKey{strategy: strategy, selectionID: o.SelectionID, handicap: o.Handicap}
	b.selectionOrders[key] = append(b.selectionOrders[key], o)
}

func (b *Blotter) removeFromIndices(o *order.Order) {
	b.liveOrders = removeOrder(b.liveOrders, o)
	b.tradeOrders[o.Trade.ID] = removeOrder(b.tradeOrders[o.Trade.ID], o)
	strategy := o.Trade.Strategy
	b.strategyOrders[strategy] = removeOrder(b.strategyOrders[strategy], o)
	key := selectionKey{strategy: strategy, selectionID: o.SelectionID, handicap: o.Handicap}
	b.selectionOrders[key] = removeOrder(b.selectionOrders[key], o)
}

func removeOrder(orders []*order.Order, target *order.Order) []*order.Order {
	for i, o := range orders {
		if o == target {
			return append(orders[:i], orders[i+1:]...)
		}
	}
	return orders
}

// Order returns the order with the given id, live or closed.
func (b *Blotter) Order(id string) (*order.Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// OrderByBetID scans for the order carrying an exchange bet id.
func (b *Blotter) OrderByBetID(betID string) (*order.Order, bool) {
	if betID == "" {
		return nil, false
	}
	for _, o := range b.orders {
		if o.BetID == betID {
			return o, true
		}
	}
	return nil, false
}

// Has reports whether an order id is known.
func (b *Blotter) Has(id string) bool {
	_, ok := b.orders[id]
	return ok
}

// HasTrade reports whether any order exists for the trade id.
func (b *Blotter) HasTrade(tradeID string) bool {
	return len(b.tradeOrders[tradeID]) > 0
}

// Len counts every order ever inserted, including closed ones.
func (b *Blotter) Len() int {
	return len(b.orders)
}

// Orders returns every order ordered by id, for deterministic iteration.
func (b *Blotter) Orders() []*order.Order {
	all := make([]*order.Order, 0, len(b.orders))
	for _, o := range b.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// LiveOrders filters the live index, skipping orders that have completed
// since the last sweep.
func (b *Blotter) LiveOrders() []*order.Order {
	var live []*order.Order
	for _, o := range b.liveOrders {
		if !o.Complete() {
			live = append(live, o)
		}
	}
	return live
}

// HasLiveOrders reports whether any order is still working.
func (b *Blotter) HasLiveOrders() bool {
	for _, o := range b.liveOrders {
		if !o.Complete() {
			return true
		}
	}
	return false
}

// CompleteOrder drops an order from the live index. The id map keeps it for
// settlement queries.
func (b *Blotter) CompleteOrder(o *order.Order) {
	b.liveOrders = removeOrder(b.liveOrders, o)
}

// TradeOrders returns the orders owned by a trade.
func (b *Blotter) TradeOrders(tradeID string) []*order.Order {
	return b.tradeOrders[tradeID]
}

// StrategyOrders returns every order placed by a strategy on this market.
func (b *Blotter) StrategyOrders(strategy order.Strategy) []*order.Order {
	return b.strategyOrders[strategy]
}

// StrategySelectionOrders returns a strategy's orders on one selection.
func (b *Blotter) StrategySelectionOrders(strategy order.Strategy, selectionID int64, handicap float64) []*order.Order {
	key := selectionKey{strategy: strategy, selectionID: selectionID, handicap: handicap}
	return b.selectionOrders[key]
}

// ProcessClosedMarket stamps each order with its runner's final status from
// the closing book.
func (b *Blotter) ProcessClosedMarket(book *resources.MarketBook) {
	for _, o := range b.orders {
		if runner, ok := book.Runner(o.SelectionID, o.Handicap); ok {
			o.RunnerStatus = runner.Status
		}
	}
}

// ProcessClearedOrders attaches settlement results to their orders and
// returns the orders that settled.
func (b *Blotter) ProcessClearedOrders(cleared *resources.ClearedOrders) []*order.Order {
	settled := make([]*order.Order, 0, len(cleared.Orders))
	for i := range cleared.Orders {
		c := cleared.Orders[i]
		o, ok := b.lookupCleared(c)
		if !ok {
			continue
		}
		snapshot := c
		o.Cleared = &snapshot
		settled = append(settled, o)
	}
	return settled
}

func (b *Blotter) lookupCleared(c resources.ClearedOrder) (*order.Order, bool) {
	if _, orderID, ok := order.ParseCustomerOrderRef(c.CustomerOrderRef); ok {
		if o, found := b.orders[orderID]; found {
			return o, true
		}
	}
	return b.OrderByBetID(c.BetID)
}
