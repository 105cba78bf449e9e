package engine

import (
	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// settleSimulated synthesizes settlement for a closed market when no real
// settlement feed exists (paper and backtest modes). It runs on the
// dispatcher goroutine after the simulator's close results have been applied,
// so matched sizes and runner statuses are final.
func (e *Engine) settleSimulated(m *market.Market) {
	if settled, ok := m.Context["settled"].(bool); ok && settled {
		return
	}
	m.Context["settled"] = true

	cleared := e.syntheticCleared(m)
	if len(cleared.Orders) == 0 {
		return
	}
	e.processClearedOrders(cleared)

	var profit float64
	for _, c := range cleared.Orders {
		profit += c.Profit
	}
	markets := &resources.ClearedMarkets{Markets: []resources.ClearedMarket{{
		MarketID: m.MarketID,
		Profit:   profit,
		BetCount: len(cleared.Orders),
	}}}
	for _, lc := range e.logControls {
		lc.ProcessClearedMarkets(markets)
	}
	logs.Infof("market %s settled, %d bets, %.2f profit", m.MarketID, len(cleared.Orders), profit)
}

func (e *Engine) syntheticCleared(m *market.Market) *resources.ClearedOrders {
	cleared := &resources.ClearedOrders{MarketID: m.MarketID}
	for _, o := range m.Blotter.Orders() {
		if o.SizeMatched == 0 || o.Cleared != nil {
			continue
		}
		profit, ok := settlementProfit(o, e.cfg.CommissionBase)
		if !ok {
			continue
		}
		cleared.Orders = append(cleared.Orders, resources.ClearedOrder{
			BetID:            o.BetID,
			MarketID:         m.MarketID,
			SelectionID:      o.SelectionID,
			Handicap:         o.Handicap,
			Side:             string(o.Side),
			PriceMatched:     o.AveragePriceMatched,
			SizeSettled:      o.SizeMatched,
			Profit:           profit,
			SettledDate:      e.clk.Now(),
			CustomerOrderRef: o.CustomerOrderRef(),
		})
	}
	return cleared
}

// settlementProfit computes the net result of a matched bet against its
// runner's final status. Commission only applies to winnings.
func settlementProfit(o *order.Order, commissionBase float64) (float64, bool) {
	gross := 0.0
	switch o.RunnerStatus {
	case "WINNER":
		if o.Side == order.Back {
			gross = o.SizeMatched * (o.AveragePriceMatched - 1)
		} else {
			gross = -o.SizeMatched * (o.AveragePriceMatched - 1)
		}
	case "LOSER":
		if o.Side == order.Back {
			gross = -o.SizeMatched
		} else {
			gross = o.SizeMatched
		}
	case "REMOVED":
		gross = 0
	default:
		return 0, false
	}
	if gross > 0 {
		gross *= 1 - commissionBase
	}
	return gross, true
}
