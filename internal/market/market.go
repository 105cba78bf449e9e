package market

import (
	"time"

	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// Transactor routes order requests from a market through controls and into
// the execution subsystem. The engine implements it.
type Transactor interface {
	Place(m *Market, o *order.Order) error
	Cancel(m *Market, o *order.Order, sizeReduction float64) error
	Update(m *Market, o *order.Order, newPersistence string) error
	Replace(m *Market, o *order.Order, newPrice float64) error
}

// Market pairs the latest book snapshot with the blotter of orders working on
// it. It is mutated only on the dispatcher goroutine.
type Market struct {
	MarketID        string
	MarketBook      *resources.MarketBook
	MarketCatalogue *resources.MarketCatalogue
	Blotter         *Blotter

	// Context is scratch space shared by strategies trading this market.
	Context map[string]any

	Closed     bool
	DateOpened time.Time
	DateClosed time.Time

	clk        clock.Clock
	transactor Transactor
}

// New creates an open market around its first book snapshot.
func New(marketID string, book *resources.MarketBook, clk clock.Clock, transactor Transactor) *Market {
	return &Market{
		MarketID:   marketID,
		MarketBook: book,
		Blotter:    NewBlotter(marketID),
		Context:    make(map[string]any),
		DateOpened: clk.Now(),
		clk:        clk,
		transactor: transactor,
	}
}

// Open clears the closed flag when a market's feed resumes.
func (m *Market) Open() {
	m.Closed = false
	m.DateClosed = time.Time{}
}

// Close marks the market closed and remembers when.
func (m *Market) Close() {
	m.Closed = true
	m.DateClosed = m.clk.Now()
}

// ElapsedSecondsClosed is how long ago the market closed, zero while open.
func (m *Market) ElapsedSecondsClosed() float64 {
	if !m.Closed || m.DateClosed.IsZero() {
		return 0
	}
	return m.clk.Now().Sub(m.DateClosed).Seconds()
}

// Status reports the exchange market status from the latest book.
func (m *Market) Status() string {
	if m.MarketBook == nil {
		return ""
	}
	return m.MarketBook.Status
}

// BetDelay is the in-play bet delay from the latest book.
func (m *Market) BetDelay() int {
	if m.MarketBook == nil {
		return 0
	}
	return m.MarketBook.BetDelay
}

// InPlay reports whether the market has turned in play.
func (m *Market) InPlay() bool {
	return m.MarketBook != nil && m.MarketBook.InPlay
}

// EventID returns the parent event id from the market definition.
func (m *Market) EventID() string {
	if m.MarketBook == nil || m.MarketBook.MarketDefinition == nil {
		return ""
	}
	return m.MarketBook.MarketDefinition.EventID
}

// MarketType returns the market type from the market definition.
func (m *Market) MarketType() string {
	if m.MarketBook == nil || m.MarketBook.MarketDefinition == nil {
		return ""
	}
	return m.MarketBook.MarketDefinition.MarketType
}

// PlaceOrder submits a new order on this market.
func (m *Market) PlaceOrder(o *order.Order) error {
	return m.transactor.Place(m, o)
}

// CancelOrder cancels the unmatched remainder, or sizeReduction of it when
// positive.
func (m *Market) CancelOrder(o *order.Order, sizeReduction float64) error {
	return m.transactor.Cancel(m, o, sizeReduction)
}

// UpdateOrder changes the persistence of a resting order.
func (m *Market) UpdateOrder(o *order.Order, newPersistence string) error {
	return m.transactor.Update(m, o, newPersistence)
}

// ReplaceOrder atomically cancels the remainder and resubmits it at newPrice.
func (m *Market) ReplaceOrder(o *order.Order, newPrice float64) error {
	return m.transactor.Replace(m, o, newPrice)
}
