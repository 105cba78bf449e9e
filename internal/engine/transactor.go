package engine

import (
	"github.com/vincentmele/flumine/internal/control"
	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/strategy"
)

// The engine is the market.Transactor: order requests made inside strategy
// callbacks come straight back here, pass the controls, and go out through
// the owning client's execution.
var _ market.Transactor = (*Engine)(nil)

type runnerContexter interface {
	RunnerContext(marketID string, selectionID int64, handicap float64) *strategy.RunnerContext
}

// Place inserts the order into the blotter, validates it, and submits it.
// A control rejection is not an error: the order ends in Violation and the
// strategy observes it through ProcessOrders.
func (e *Engine) Place(m *market.Market, o *order.Order) error {
	if m.Blotter.Has(o.ID) {
		return errors.New("order already placed: " + o.ID)
	}
	cl, err := e.defaultClient()
	if err != nil {
		return err
	}
	o.Simulated = cl.Paper || e.cfg.Simulated()
	m.Blotter.Insert(o)
	e.notifyPlaced(o)

	if !control.Validate(e.controls, m, o, order.PackagePlace) {
		m.Blotter.CompleteOrder(o)
		e.notifyCompleted(o)
		return nil
	}

	pkg := order.NewPackage(cl, m.MarketID, order.PackagePlace, []*order.Order{o}, e.clk.Now())
	pkg.BetDelay = m.BetDelay()
	pkg.InPlay = m.InPlay()
	return cl.Execute(pkg)
}

// Cancel requests cancellation of the unmatched remainder, or sizeReduction
// of it when positive.
func (e *Engine) Cancel(m *market.Market, o *order.Order, sizeReduction float64) error {
	if o.Status != order.StatusExecutable {
		return errors.New("cannot cancel order in status " + o.Status.String())
	}
	cl, err := e.defaultClient()
	if err != nil {
		return err
	}
	if !control.Validate(e.controls, m, o, order.PackageCancel) {
		return nil
	}
	pkg := order.NewPackage(cl, m.MarketID, order.PackageCancel, []*order.Order{o}, e.clk.Now())
	pkg.SizeReduction = sizeReduction
	return cl.Execute(pkg)
}

// Update changes the persistence of a resting order.
func (e *Engine) Update(m *market.Market, o *order.Order, newPersistence string) error {
	if o.Status != order.StatusExecutable {
		return errors.New("cannot update order in status " + o.Status.String())
	}
	cl, err := e.defaultClient()
	if err != nil {
		return err
	}
	if !control.Validate(e.controls, m, o, order.PackageUpdate) {
		return nil
	}
	pkg := order.NewPackage(cl, m.MarketID, order.PackageUpdate, []*order.Order{o}, e.clk.Now())
	pkg.NewPersistence = newPersistence
	return cl.Execute(pkg)
}

// Replace cancels the remainder and resubmits it at newPrice. The successor
// order is created up front so acknowledgments have somewhere to land, and
// is validated like any other placement.
func (e *Engine) Replace(m *market.Market, o *order.Order, newPrice float64) error {
	if o.Status != order.StatusExecutable {
		return errors.New("cannot replace order in status " + o.Status.String())
	}
	cl, err := e.defaultClient()
	if err != nil {
		return err
	}

	replacement := o.Trade.CreateReplacement(o, newPrice, e.clk.Now())
	replacement.Simulated = o.Simulated
	m.Blotter.Insert(replacement)
	e.notifyPlaced(replacement)
	if !control.Validate(e.controls, m, replacement, order.PackagePlace) {
		m.Blotter.CompleteOrder(replacement)
		e.notifyCompleted(replacement)
		return nil
	}

	pkg := order.NewPackage(cl, m.MarketID, order.PackageReplace, []*order.Order{o}, e.clk.Now())
	pkg.NewPrice = newPrice
	pkg.Replacement = replacement
	pkg.BetDelay = m.BetDelay()
	pkg.InPlay = m.InPlay()
	return cl.Execute(pkg)
}

func (e *Engine) notifyPlaced(o *order.Order) {
	if rc, ok := o.Trade.Strategy.(runnerContexter); ok {
		rc.RunnerContext(o.MarketID, o.SelectionID, o.Handicap).Place(o.Trade.ID, e.clk.Now())
	}
}

func (e *Engine) notifyCompleted(o *order.Order) {
	if !o.Trade.Complete() {
		return
	}
	if rc, ok := o.Trade.Strategy.(runnerContexter); ok {
		rc.RunnerContext(o.MarketID, o.SelectionID, o.Handicap).Reset(o.Trade.ID, e.clk.Now())
	}
}
