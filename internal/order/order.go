// Package order implements the order and trade lifecycle: the state machine
// driven by exchange acknowledgments, the trade that owns a sequence of
// orders, and the package batching orders for the execution subsystem.
package order

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/resources"
)

// Side of the book an order sits on.
type Side string

const (
	Back Side = "BACK"
	Lay  Side = "LAY"
)

// Status is the local order lifecycle state.
type Status uint8

const (
	StatusPending Status = iota
	StatusExecutable
	StatusExecutionComplete
	StatusViolation
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusExecutable:
		return "Executable"
	case StatusExecutionComplete:
		return "ExecutionComplete"
	case StatusViolation:
		return "Violation"
	case StatusExpired:
		return "Expired"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusExecutionComplete, StatusViolation, StatusExpired:
		return true
	default:
		return false
	}
}

// OrderType is the closed set of order variants. The exposure engine and the
// simulator consume it exhaustively; an unknown implementation fails fast.
type OrderType interface {
	// WireName is the exchange's name for the variant.
	WireName() string
	sealed()
}

// Limit rests at a price for a size.
type Limit struct {
	Price           float64
	Size            float64
	PersistenceType string
}

// LimitOnClose takes starting price at market close, capped at a price, with
// a stated worst-case liability.
type LimitOnClose struct {
	Price     float64
	Liability float64
}

// MarketOnClose takes starting price at market close with a stated liability.
type MarketOnClose struct {
	Liability float64
}

func (Limit) WireName() string         { return "LIMIT" }
func (LimitOnClose) WireName() string  { return "LIMIT_ON_CLOSE" }
func (MarketOnClose) WireName() string { return "MARKET_ON_CLOSE" }

func (Limit) sealed()         {}
func (LimitOnClose) sealed()  {}
func (MarketOnClose) sealed() {}

// Strategy is the subset of strategy identity the order layer depends on.
type Strategy interface {
	Name() string
	NameHash() string
}

// Lookup is the (market, selection, handicap) key exposure queries run on.
type Lookup struct {
	MarketID    string
	SelectionID int64
	Handicap    float64
}

// Order is the framework's view of a single exchange order.
type Order struct {
	ID          string
	Trade       *Trade
	Side        Side
	OrderType   OrderType
	Status      Status
	MarketID    string
	SelectionID int64
	Handicap    float64

	BetID               string
	AveragePriceMatched float64
	SizeMatched         float64
	SizeRemaining       float64
	SizeCancelled       float64
	SizeLapsed          float64
	SizeVoided          float64

	// RunnerStatus is stamped from the closing book for settlement.
	RunnerStatus string
	ViolationMsg string
	Simulated    bool

	CurrentOrder *resources.CurrentOrder
	Cleared      *resources.ClearedOrder

	DateCreated time.Time
}

// Lookup returns the order's exposure key.
func (o *Order) Lookup() Lookup {
	return Lookup{MarketID: o.MarketID, SelectionID: o.SelectionID, Handicap: o.Handicap}
}

// Complete reports whether the order has reached a terminal status.
func (o *Order) Complete() bool {
	return o.Status.Terminal()
}

// ElapsedSeconds is the age of the order against the supplied now.
func (o *Order) ElapsedSeconds(now time.Time) float64 {
	return now.Sub(o.DateCreated).Seconds()
}

// Executable transitions the order after exchange/simulator acceptance.
func (o *Order) Executable() error {
	if o.Status == StatusExecutable {
		return nil
	}
	if o.Status != StatusPending {
		return errors.New("invalid transition to Executable from " + o.Status.String())
	}
	o.Status = StatusExecutable
	o.Trade.refreshStatus()
	return nil
}

// ExecutionComplete transitions a fully matched or cancelled order.
func (o *Order) ExecutionComplete() error {
	if o.Status != StatusPending && o.Status != StatusExecutable {
		return errors.New("invalid transition to ExecutionComplete from " + o.Status.String())
	}
	o.Status = StatusExecutionComplete
	o.Trade.refreshStatus()
	return nil
}

// Violation routes a control-rejected order to its terminal state. The order
// stays in the blotter but contributes nothing to exposure.
func (o *Order) Violation(name, reason string) error {
	if o.Status.Terminal() {
		return errors.New("invalid transition to Violation from " + o.Status.String())
	}
	o.Status = StatusViolation
	o.ViolationMsg = name + ": " + reason
	o.Trade.refreshStatus()
	return nil
}

// Expire transitions an order the exchange lapsed without filling.
func (o *Order) Expire() error {
	if o.Status.Terminal() {
		return errors.New("invalid transition to Expired from " + o.Status.String())
	}
	o.Status = StatusExpired
	o.Trade.refreshStatus()
	return nil
}

// UpdateCurrentOrder copies the sizes and matched price from an exchange
// snapshot onto the local order.
func (o *Order) UpdateCurrentOrder(co resources.CurrentOrder) {
	snapshot := co
	o.CurrentOrder = &snapshot
	if co.BetID != "" {
		o.BetID = co.BetID
	}
	o.AveragePriceMatched = co.AveragePriceMatched
	o.SizeMatched = co.SizeMatched
	o.SizeRemaining = co.SizeRemaining
	o.SizeCancelled = co.SizeCancelled
	o.SizeLapsed = co.SizeLapsed
	o.SizeVoided = co.SizeVoided
}

// ProcessCurrent reconciles an exchange order snapshot into the local order,
// transitioning it when the exchange reports execution complete. This is the
// single state-mutation routine shared by live and simulated execution.
func ProcessCurrent(o *Order, co resources.CurrentOrder) error {
	o.UpdateCurrentOrder(co)
	switch co.Status {
	case resources.OrderStatusExecutionComplete:
		if o.Status.Terminal() {
			return nil
		}
		if co.SizeMatched == 0 && co.SizeLapsed > 0 {
			return o.Expire()
		}
		return o.ExecutionComplete()
	case resources.OrderStatusExecutable:
		if o.Status == StatusPending {
			return o.Executable()
		}
		return nil
	default:
		return nil
	}
}

const customerRefSep = "I"

// CustomerOrderRef builds the exchange customer reference linking an order
// back to its strategy: <strategy name hash>I<order id>.
func (o *Order) CustomerOrderRef() string {
	return o.Trade.Strategy.NameHash() + customerRefSep + o.ID
}

// ParseCustomerOrderRef splits a customer order reference into the strategy
// name hash and the local order id.
func ParseCustomerOrderRef(ref string) (nameHash, orderID string, ok bool) {
	return strings.Cut(ref, customerRefSep)
}

// NameHash produces the short strategy fingerprint used in customer order
// references. It only needs to be fast and stable, not unique.
func NameHash(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])[:13]
}

func shortID() string {
	return uuid.NewString()[:8]
}
