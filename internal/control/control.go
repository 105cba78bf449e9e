// Package control implements the pre-submission checks every order package
// passes through. A failing check routes the order to Violation instead of
// the exchange.
package control

import (
	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
)

// Control validates one order in the context of its market before
// submission.
type Control interface {
	Name() string
	Validate(m *market.Market, o *order.Order, packageType order.PackageType) error
}

// Validate runs every control in sequence and transitions the order to
// Violation on the first failure. It reports whether the order passed.
func Validate(controls []Control, m *market.Market, o *order.Order, packageType order.PackageType) bool {
	for _, c := range controls {
		if err := c.Validate(m, o, packageType); err != nil {
			logs.Warnf("control %s rejected order %s: %v", c.Name(), o.ID, err)
			if verr := o.Violation(c.Name(), err.Error()); verr != nil {
				logs.Errorf("order %s violation transition failed: %v", o.ID, verr)
			}
			return false
		}
	}
	return true
}

// orderExposure is the worst-case liability a single order adds.
func orderExposure(o *order.Order) float64 {
	switch ot := o.OrderType.(type) {
	case order.Limit:
		if o.Side == order.Lay {
			return (ot.Price - 1) * ot.Size
		}
		return ot.Size
	case order.LimitOnClose:
		return ot.Liability
	case order.MarketOnClose:
		return ot.Liability
	default:
		return 0
	}
}
