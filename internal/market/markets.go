package market

import (
	"sort"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/order"
)

// Markets is the registry of markets the framework has seen. It is read and
// written only on the dispatcher goroutine, so it carries no lock.
type Markets struct {
	markets map[string]*Market
}

// NewMarkets creates an empty registry.
func NewMarkets() *Markets {
	return &Markets{markets: make(map[string]*Market)}
}

// Add registers a market. Adding an id that is already present reopens the
// existing market rather than replacing it, so the blotter survives a feed
// restart.
func (ms *Markets) Add(m *Market) *Market {
	if existing, ok := ms.markets[m.MarketID]; ok {
		if existing.Closed {
			logs.Infof("market %s reopened", m.MarketID)
			existing.Open()
		}
		return existing
	}
	ms.markets[m.MarketID] = m
	return m
}

// Get looks up a market by id.
func (ms *Markets) Get(marketID string) (*Market, bool) {
	m, ok := ms.markets[marketID]
	return m, ok
}

// Remove drops a market from the registry.
func (ms *Markets) Remove(marketID string) {
	delete(ms.markets, marketID)
}

// Len counts every registered market, open or closed.
func (ms *Markets) Len() int {
	return len(ms.markets)
}

// All returns every market ordered by id, for deterministic iteration.
func (ms *Markets) All() []*Market {
	all := make([]*Market, 0, len(ms.markets))
	for _, m := range ms.markets {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].MarketID < all[j].MarketID })
	return all
}

// Open returns the markets not yet closed, ordered by id.
func (ms *Markets) Open() []*Market {
	var open []*Market
	for _, m := range ms.All() {
		if !m.Closed {
			open = append(open, m)
		}
	}
	return open
}

// LiveOrders reports whether any market still has working orders.
func (ms *Markets) LiveOrders() bool {
	for _, m := range ms.markets {
		if m.Blotter.HasLiveOrders() {
			return true
		}
	}
	return false
}

// AllLiveOrders collects the working orders across every market, ordered by
// market id.
func (ms *Markets) AllLiveOrders() []*order.Order {
	var live []*order.Order
	for _, m := range ms.All() {
		live = append(live, m.Blotter.LiveOrders()...)
	}
	return live
}
