package control

import (
	"math"

	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
)

// BettingLimits supplies the exchange minimums, which vary by account
// currency.
type BettingLimits interface {
	MinBetSize() float64
	MinBetPayout() float64
	MinBSPLiability() float64
}

// OrderValidation rejects orders the exchange would refuse: sizes under the
// minimum, prices off the tick ladder, on-close liabilities under the
// minimum.
type OrderValidation struct {
	Limits BettingLimits
}

func (OrderValidation) Name() string { return "ORDER_VALIDATION" }

func (v OrderValidation) Validate(_ *market.Market, o *order.Order, packageType order.PackageType) error {
	if packageType != order.PackagePlace {
		return nil
	}
	switch ot := o.OrderType.(type) {
	case order.Limit:
		return v.validateLimit(ot)
	case order.LimitOnClose:
		if ot.Liability < v.Limits.MinBSPLiability() {
			return errors.New("liability below minimum")
		}
		if !PriceOnLadder(ot.Price) {
			return errors.New("price not on ladder")
		}
		return nil
	case order.MarketOnClose:
		if ot.Liability < v.Limits.MinBSPLiability() {
			return errors.New("liability below minimum")
		}
		return nil
	default:
		return errors.Domain("unexpected order type: %T", o.OrderType)
	}
}

func (v OrderValidation) validateLimit(ot order.Limit) error {
	if ot.Size <= 0 {
		return errors.New("size must be positive")
	}
	if !PriceOnLadder(ot.Price) {
		return errors.New("price not on ladder")
	}
	// small stakes are allowed when the potential payout clears the bar
	if ot.Size < v.Limits.MinBetSize() && ot.Price*ot.Size < v.Limits.MinBetPayout() {
		return errors.New("size below minimum")
	}
	return nil
}

type ladderBand struct {
	upper float64
	tick  float64
}

var ladder = []ladderBand{
	{upper: 2, tick: 0.01},
	{upper: 3, tick: 0.02},
	{upper: 4, tick: 0.05},
	{upper: 6, tick: 0.1},
	{upper: 10, tick: 0.2},
	{upper: 20, tick: 0.5},
	{upper: 30, tick: 1},
	{upper: 50, tick: 2},
	{upper: 100, tick: 5},
	{upper: 1000, tick: 10},
}

// PriceOnLadder reports whether a price is a valid exchange tick.
func PriceOnLadder(price float64) bool {
	if price < 1.01 || price > 1000 {
		return false
	}
	lower := 1.0
	for _, band := range ladder {
		if price <= band.upper {
			steps := (price - lower) / band.tick
			return math.Abs(steps-math.Round(steps)) < 1e-6
		}
		lower = band.upper
	}
	return false
}
