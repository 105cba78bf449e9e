package control

import (
	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
)

// exposureLimits is the slice of the strategy surface this control needs.
type exposureLimits interface {
	MaxOrderExposure() float64
	MaxSelectionExposure() float64
}

// StrategyExposure rejects placements that would push a strategy past its
// per-order or per-selection worst-case liability limits.
type StrategyExposure struct{}

func (StrategyExposure) Name() string { return "STRATEGY_EXPOSURE" }

func (StrategyExposure) Validate(m *market.Market, o *order.Order, packageType order.PackageType) error {
	if packageType != order.PackagePlace {
		return nil
	}
	limits, ok := o.Trade.Strategy.(exposureLimits)
	if !ok {
		return nil
	}

	added := orderExposure(o)
	if added > limits.MaxOrderExposure() {
		return errors.Newf("order exposure %.2f exceeds strategy limit %.2f", added, limits.MaxOrderExposure())
	}

	current, err := m.Blotter.SelectionExposure(o.Trade.Strategy, o.Lookup(), o)
	if err != nil {
		return err
	}
	if current+added > limits.MaxSelectionExposure() {
		return errors.Newf("selection exposure %.2f exceeds strategy limit %.2f",
			current+added, limits.MaxSelectionExposure())
	}
	return nil
}
