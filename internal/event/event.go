// Package event defines the closed set of framework events and the bounded
// FIFO queue they travel through. One consumer drains the queue; no two
// events are ever processed concurrently.
package event

import (
	"time"

	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// Kind discriminates the event payload.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMarketBook
	KindRawData
	KindMarketCatalogue
	KindCurrentOrders
	KindCloseMarket
	KindClearedOrders
	KindClearedOrdersMeta
	KindClearedMarkets
	KindCustom
	KindConfig
	KindStrategy
	KindBalance
	KindTermination
)

func (k Kind) String() string {
	switch k {
	case KindMarketBook:
		return "MarketBook"
	case KindRawData:
		return "RawData"
	case KindMarketCatalogue:
		return "MarketCatalogue"
	case KindCurrentOrders:
		return "CurrentOrders"
	case KindCloseMarket:
		return "CloseMarket"
	case KindClearedOrders:
		return "ClearedOrders"
	case KindClearedOrdersMeta:
		return "ClearedOrdersMeta"
	case KindClearedMarkets:
		return "ClearedMarkets"
	case KindCustom:
		return "Custom"
	case KindConfig:
		return "Config"
	case KindStrategy:
		return "Strategy"
	case KindBalance:
		return "Balance"
	case KindTermination:
		return "Termination"
	default:
		return "Unknown"
	}
}

// CloseMarket signals a market reached CLOSED status, either from a decoded
// book (MarketBook set) or from a raw feed datum (MarketBook nil).
type CloseMarket struct {
	MarketID   string
	StreamID   int
	MarketBook *resources.MarketBook
}

// Event is the unit passed through the queue. Exactly one payload field is
// set, selected by Kind.
type Event struct {
	Kind     Kind
	Received time.Time

	MarketBooks      []*resources.MarketBook
	RawData          *resources.RawData
	MarketCatalogues []*resources.MarketCatalogue
	CurrentOrders    *resources.CurrentOrders
	CloseMarket      *CloseMarket
	ClearedOrders    *resources.ClearedOrders
	ClearedMarkets   *resources.ClearedMarkets
	MetaOrders       []*order.Order
	Balance          *resources.AccountFunds
	StrategyName     string

	// Custom is invoked on the dispatcher goroutine; callers capture the
	// engine when constructing the event.
	Custom func(e Event) error
}

func MarketBookEvent(books ...*resources.MarketBook) Event {
	return Event{Kind: KindMarketBook, MarketBooks: books}
}

func RawDataEvent(raw *resources.RawData) Event {
	return Event{Kind: KindRawData, RawData: raw}
}

func MarketCatalogueEvent(catalogues ...*resources.MarketCatalogue) Event {
	return Event{Kind: KindMarketCatalogue, MarketCatalogues: catalogues}
}

func CurrentOrdersEvent(orders *resources.CurrentOrders) Event {
	return Event{Kind: KindCurrentOrders, CurrentOrders: orders}
}

func CloseMarketEvent(close *CloseMarket) Event {
	return Event{Kind: KindCloseMarket, CloseMarket: close}
}

func ClearedOrdersEvent(cleared *resources.ClearedOrders) Event {
	return Event{Kind: KindClearedOrders, ClearedOrders: cleared}
}

func ClearedOrdersMetaEvent(orders []*order.Order) Event {
	return Event{Kind: KindClearedOrdersMeta, MetaOrders: orders}
}

func ClearedMarketsEvent(cleared *resources.ClearedMarkets) Event {
	return Event{Kind: KindClearedMarkets, ClearedMarkets: cleared}
}

func BalanceEvent(funds *resources.AccountFunds) Event {
	return Event{Kind: KindBalance, Balance: funds}
}

func ConfigEvent() Event {
	return Event{Kind: KindConfig}
}

func StrategyEvent(name string) Event {
	return Event{Kind: KindStrategy, StrategyName: name}
}

func CustomEvent(callback func(e Event) error) Event {
	return Event{Kind: KindCustom, Custom: callback}
}

func TerminationEvent() Event {
	return Event{Kind: KindTermination}
}
