package market

import (
	"github.com/shopspring/decimal"

	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/order"
)

// Exposure is the worst-case profit picture for one strategy on one
// selection. Win and lose figures are the profit if the selection wins or
// loses; the unmatched figures isolate the contribution of resting limit
// remainders.
type Exposure struct {
	MatchedProfitIfWin                  float64
	MatchedProfitIfLose                 float64
	WorstPossibleProfitOnWin            float64
	WorstPossibleProfitOnLose           float64
	WorstPotentialUnmatchedProfitIfWin  float64
	WorstPotentialUnmatchedProfitIfLose float64
}

var one = decimal.NewFromInt(1)

// Exposures aggregates a strategy's orders on a selection into worst-case
// profit figures. Violation orders contribute nothing; exclude, when not nil,
// is left out (used when validating the order being placed). Accumulation is
// exact, converted to float only at the end.
func (b *Blotter) Exposures(strategy order.Strategy, lookup order.Lookup, exclude *order.Order) (Exposure, error) {
	var (
		matchedWin, matchedLose     decimal.Decimal
		unmatchedWin, unmatchedLose decimal.Decimal
		onCloseWin, onCloseLose     decimal.Decimal
	)

	for _, o := range b.StrategySelectionOrders(strategy, lookup.SelectionID, lookup.Handicap) {
		if o == exclude || o.Status == order.StatusViolation || o.MarketID != lookup.MarketID {
			continue
		}
		switch ot := o.OrderType.(type) {
		case order.Limit:
			if o.SizeMatched > 0 {
				size := decimal.NewFromFloat(o.SizeMatched)
				profit := decimal.NewFromFloat(o.AveragePriceMatched).Sub(one).Mul(size)
				if o.Side == order.Back {
					matchedWin = matchedWin.Add(profit)
					matchedLose = matchedLose.Sub(size)
				} else {
					matchedWin = matchedWin.Sub(profit)
					matchedLose = matchedLose.Add(size)
				}
			}
			if o.SizeRemaining > 0 {
				size := decimal.NewFromFloat(o.SizeRemaining)
				if o.Side == order.Back {
					unmatchedLose = unmatchedLose.Sub(size)
				} else if ot.Price > 0 {
					liability := decimal.NewFromFloat(ot.Price).Sub(one).Mul(size)
					unmatchedWin = unmatchedWin.Sub(liability)
				}
			}
		case order.LimitOnClose:
			liability := decimal.NewFromFloat(ot.Liability)
			if o.Side == order.Back {
				onCloseLose = onCloseLose.Sub(liability)
			} else {
				onCloseWin = onCloseWin.Sub(liability)
			}
		case order.MarketOnClose:
			liability := decimal.NewFromFloat(ot.Liability)
			if o.Side == order.Back {
				onCloseLose = onCloseLose.Sub(liability)
			} else {
				onCloseWin = onCloseWin.Sub(liability)
			}
		default:
			return Exposure{}, errors.Domain("unexpected order type in blotter: %T", o.OrderType)
		}
	}

	return Exposure{
		MatchedProfitIfWin:                  matchedWin.InexactFloat64(),
		MatchedProfitIfLose:                 matchedLose.InexactFloat64(),
		WorstPossibleProfitOnWin:            matchedWin.Add(unmatchedWin).Add(onCloseWin).InexactFloat64(),
		WorstPossibleProfitOnLose:           matchedLose.Add(unmatchedLose).Add(onCloseLose).InexactFloat64(),
		WorstPotentialUnmatchedProfitIfWin:  unmatchedWin.InexactFloat64(),
		WorstPotentialUnmatchedProfitIfLose: unmatchedLose.InexactFloat64(),
	}, nil
}

// SelectionExposure reduces the worst-case figures to a single non-negative
// amount at risk on the selection.
func (b *Blotter) SelectionExposure(strategy order.Strategy, lookup order.Lookup, exclude *order.Order) (float64, error) {
	exposure, err := b.Exposures(strategy, lookup, exclude)
	if err != nil {
		return 0, err
	}
	worst := exposure.WorstPossibleProfitOnWin
	if exposure.WorstPossibleProfitOnLose < worst {
		worst = exposure.WorstPossibleProfitOnLose
	}
	if worst < 0 {
		return -worst, nil
	}
	return 0, nil
}
