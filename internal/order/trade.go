package order

import "time"

// TradeStatus is the lifecycle of a trade.
type TradeStatus uint8

const (
	TradePending TradeStatus = iota
	TradeLive
	TradeComplete
)

func (s TradeStatus) String() string {
	switch s {
	case TradePending:
		return "Pending"
	case TradeLive:
		return "Live"
	default:
		return "Complete"
	}
}

// Trade owns the ordered sequence of orders working one idea on a selection.
// A replace creates a new order under the same trade.
type Trade struct {
	ID          string
	Strategy    Strategy
	Status      TradeStatus
	MarketID    string
	SelectionID int64
	Handicap    float64
	Orders      []*Order
	DateCreated time.Time
}

// NewTrade starts an empty trade for a strategy on a selection.
func NewTrade(marketID string, selectionID int64, handicap float64, strategy Strategy, created time.Time) *Trade {
	return &Trade{
		ID:          shortID(),
		Strategy:    strategy,
		Status:      TradePending,
		MarketID:    marketID,
		SelectionID: selectionID,
		Handicap:    handicap,
		DateCreated: created,
	}
}

// CreateOrder appends a new pending order to the trade.
func (t *Trade) CreateOrder(side Side, orderType OrderType, created time.Time) *Order {
	o := &Order{
		ID:          shortID(),
		Trade:       t,
		Side:        side,
		OrderType:   orderType,
		Status:      StatusPending,
		MarketID:    t.MarketID,
		SelectionID: t.SelectionID,
		Handicap:    t.Handicap,
		DateCreated: created,
	}
	t.Orders = append(t.Orders, o)
	return o
}

// CreateReplacement builds the successor order for a replace request: the
// original's unfilled remainder resubmitted at a new price.
func (t *Trade) CreateReplacement(original *Order, newPrice float64, created time.Time) *Order {
	size := original.SizeRemaining
	if size == 0 {
		if limit, ok := original.OrderType.(Limit); ok {
			size = limit.Size
		}
	}
	persistence := ""
	if limit, ok := original.OrderType.(Limit); ok {
		persistence = limit.PersistenceType
	}
	return t.CreateOrder(original.Side, Limit{
		Price:           newPrice,
		Size:            size,
		PersistenceType: persistence,
	}, created)
}

// Order returns the trade's order with the given id.
func (t *Trade) Order(id string) (*Order, bool) {
	for _, o := range t.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Complete reports whether every order under the trade is terminal.
func (t *Trade) Complete() bool {
	if len(t.Orders) == 0 {
		return false
	}
	for _, o := range t.Orders {
		if !o.Complete() {
			return false
		}
	}
	return true
}

func (t *Trade) refreshStatus() {
	if t == nil {
		return
	}
	if t.Complete() {
		t.Status = TradeComplete
		return
	}
	for _, o := range t.Orders {
		if o.Status == StatusExecutable {
			t.Status = TradeLive
			return
		}
	}
}
