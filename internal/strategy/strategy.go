// Package strategy defines the trading strategy interface, the no-op base
// implementation strategies embed, and the collection the engine iterates.
package strategy

import (
	"time"

	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// Strategy receives market data and order updates from the dispatcher. All
// callbacks run on the dispatcher goroutine; implementations must not block.
type Strategy interface {
	Name() string
	NameHash() string

	// CheckSubscription applies the static market filter to a book. The
	// engine combines it with CheckMarketBook before delivering data.
	CheckSubscription(book *resources.MarketBook) bool
	// CheckMarketBook gates per-snapshot delivery. The base returns false;
	// implementations opt in.
	CheckMarketBook(m *market.Market, book *resources.MarketBook) bool
	// SubscribedToRawStream reports interest in undecoded payloads from a
	// stream.
	SubscribedToRawStream(streamID int) bool

	ProcessNewMarket(m *market.Market, book *resources.MarketBook)
	ProcessMarketBook(m *market.Market, book *resources.MarketBook)
	ProcessRawData(streamID int, publishTime time.Time, datum map[string]any)
	ProcessOrders(m *market.Market, orders []*order.Order)
	ProcessClosedMarket(m *market.Market, book *resources.MarketBook)

	Start()
	Finish(m *market.Market)

	MaxOrderExposure() float64
	MaxSelectionExposure() float64
}

// MarketFilter selects which markets a strategy subscribes to. Empty fields
// match everything.
type MarketFilter struct {
	MarketIDs    []string
	EventTypeIDs []string
	MarketTypes  []string
	CountryCodes []string
}

func (f MarketFilter) matches(book *resources.MarketBook) bool {
	if len(f.MarketIDs) > 0 && !contains(f.MarketIDs, book.MarketID) {
		return false
	}
	def := book.MarketDefinition
	if len(f.EventTypeIDs) > 0 && (def == nil || !contains(f.EventTypeIDs, def.EventTypeID)) {
		return false
	}
	if len(f.MarketTypes) > 0 && (def == nil || !contains(f.MarketTypes, def.MarketType)) {
		return false
	}
	if len(f.CountryCodes) > 0 && (def == nil || !contains(f.CountryCodes, def.CountryCode)) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Base is the embeddable no-op strategy. Embedders set the identity and
// limits, then override the callbacks they care about.
type Base struct {
	StrategyName string
	Filter       MarketFilter
	// RawStreamIDs lists raw feed subscriptions, empty for none.
	RawStreamIDs []int

	// OrderExposureLimit caps a single order's worst-case liability;
	// SelectionExposureLimit caps the aggregate per selection. Zero values
	// fall back to the defaults.
	OrderExposureLimit     float64
	SelectionExposureLimit float64

	// Context is scratch space private to the strategy.
	Context map[string]any

	runners map[runnerKey]*RunnerContext
}

const (
	defaultMaxOrderExposure     = 10
	defaultMaxSelectionExposure = 100
)

func (b *Base) Name() string     { return b.StrategyName }
func (b *Base) NameHash() string { return order.NameHash(b.StrategyName) }

func (b *Base) CheckSubscription(book *resources.MarketBook) bool {
	return b.Filter.matches(book)
}

func (b *Base) CheckMarketBook(*market.Market, *resources.MarketBook) bool { return false }

func (b *Base) SubscribedToRawStream(streamID int) bool {
	for _, id := range b.RawStreamIDs {
		if id == streamID {
			return true
		}
	}
	return false
}

func (b *Base) ProcessNewMarket(*market.Market, *resources.MarketBook)    {}
func (b *Base) ProcessMarketBook(*market.Market, *resources.MarketBook)   {}
func (b *Base) ProcessRawData(int, time.Time, map[string]any)             {}
func (b *Base) ProcessOrders(*market.Market, []*order.Order)              {}
func (b *Base) ProcessClosedMarket(*market.Market, *resources.MarketBook) {}
func (b *Base) Start()                                                    {}
func (b *Base) Finish(*market.Market)                                     {}

func (b *Base) MaxOrderExposure() float64 {
	if b.OrderExposureLimit > 0 {
		return b.OrderExposureLimit
	}
	return defaultMaxOrderExposure
}

func (b *Base) MaxSelectionExposure() float64 {
	if b.SelectionExposureLimit > 0 {
		return b.SelectionExposureLimit
	}
	return defaultMaxSelectionExposure
}
