package order

import "time"

// PackageType is the batch request kind submitted to execution.
type PackageType uint8

const (
	PackagePlace PackageType = iota
	PackageCancel
	PackageUpdate
	PackageReplace
)

func (t PackageType) String() string {
	switch t {
	case PackagePlace:
		return "PLACE"
	case PackageCancel:
		return "CANCEL"
	case PackageUpdate:
		return "UPDATE"
	case PackageReplace:
		return "REPLACE"
	default:
		return "UNKNOWN"
	}
}

// ExecutionClient routes a package into its owning client's execution.
type ExecutionClient interface {
	Execute(p *Package) error
}

// Package batches orders for one market into a single execution request.
type Package struct {
	ID       string
	MarketID string
	Type     PackageType
	Orders   []*Order
	Client   ExecutionClient

	// Market state captured at creation; the simulator applies the bet
	// delay for place/replace when the market was in play.
	BetDelay int
	InPlay   bool

	// Request parameters for cancel/update/replace packages.
	SizeReduction  float64
	NewPersistence string
	NewPrice       float64
	// Replacement links a replace package to the pre-created successor
	// order so acknowledgments reconcile onto it.
	Replacement *Order

	CreatedAt time.Time
	// SimulatedDelay models the exchange round trip in simulated mode.
	SimulatedDelay time.Duration
}

// NewPackage builds a package for the given orders.
func NewPackage(client ExecutionClient, marketID string, packageType PackageType, orders []*Order, created time.Time) *Package {
	return &Package{
		ID:        shortID(),
		MarketID:  marketID,
		Type:      packageType,
		Orders:    orders,
		Client:    client,
		CreatedAt: created,
	}
}

// Elapsed is the package age against the supplied now.
func (p *Package) Elapsed(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// EligibleAt is the earliest instant the simulator may process the package:
// creation plus simulated delay, plus the in-play bet delay for new bets.
func (p *Package) EligibleAt() time.Time {
	eligible := p.CreatedAt.Add(p.SimulatedDelay)
	if p.InPlay && (p.Type == PackagePlace || p.Type == PackageReplace) {
		eligible = eligible.Add(time.Duration(p.BetDelay) * time.Second)
	}
	return eligible
}
