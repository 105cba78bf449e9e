package engine

import (
	"time"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/event"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
	"github.com/vincentmele/flumine/internal/strategy"
)

// maxBookLag is the delivery delay above which a live book update is flagged.
const maxBookLag = 2 * time.Second

func (e *Engine) handleEvent(ev event.Event) error {
	switch ev.Kind {
	case event.KindMarketBook:
		e.processMarketBooks(ev.MarketBooks)
	case event.KindRawData:
		e.processRawData(ev.RawData)
	case event.KindMarketCatalogue:
		e.processMarketCatalogues(ev.MarketCatalogues)
	case event.KindCurrentOrders:
		e.processCurrentOrders(ev.CurrentOrders)
	case event.KindCloseMarket:
		e.processCloseMarketEvent(ev.CloseMarket)
	case event.KindClearedOrders:
		e.processClearedOrders(ev.ClearedOrders)
	case event.KindClearedOrdersMeta:
		for _, lc := range e.logControls {
			lc.ProcessSettledOrders(ev.MetaOrders)
		}
	case event.KindClearedMarkets:
		for _, lc := range e.logControls {
			lc.ProcessClearedMarkets(ev.ClearedMarkets)
		}
	case event.KindBalance:
		if ev.Balance != nil {
			logs.Infof("balance %.2f exposure %.2f", ev.Balance.AvailableToBetBalance, ev.Balance.Exposure)
		}
	case event.KindConfig:
		logs.Infof("config active: instance %s, simulated %v", e.cfg.InstanceID, e.cfg.Simulated())
	case event.KindStrategy:
		logs.Infof("strategy %s registered", ev.StrategyName)
	case event.KindCustom:
		return e.processCustom(ev)
	case event.KindTermination:
		return errTerminated
	default:
		logs.Warnf("unhandled event kind %s", ev.Kind)
	}
	return nil
}

// safeHook contains a strategy callback panic so one misbehaving strategy
// cannot stop the dispatcher. RaiseErrors re-panics for debugging.
func (e *Engine) safeHook(strategyName string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if e.cfg.RaiseErrors {
				panic(r)
			}
			logs.Errorf("strategy %s callback panicked: %v", strategyName, r)
		}
	}()
	fn()
}

func (e *Engine) simulationActive() bool {
	if e.cfg.Simulated() {
		return true
	}
	for _, c := range e.clients {
		if c.Paper {
			return true
		}
	}
	return false
}

func (e *Engine) processMarketBooks(books []*resources.MarketBook) {
	for _, book := range books {
		m, ok := e.markets.Get(book.MarketID)
		if !ok {
			m = e.markets.Add(market.New(book.MarketID, book, e.clk, e))
			logs.Infof("market %s added", book.MarketID)
			for _, st := range e.strategies.All() {
				if st.CheckSubscription(book) {
					e.safeHook(st.Name(), func() { st.ProcessNewMarket(m, book) })
				}
			}
		} else {
			if m.Closed {
				m.Open()
				logs.Infof("market %s reopened", book.MarketID)
			}
			// first decoded book for a market created off the raw feed
			if m.MarketBook == nil {
				for _, st := range e.strategies.All() {
					if st.CheckSubscription(book) {
						e.safeHook(st.Name(), func() { st.ProcessNewMarket(m, book) })
					}
				}
			}
		}
		m.MarketBook = book

		if !e.cfg.Simulated() && !book.PublishTime.IsZero() {
			if lag := e.clk.Now().Sub(book.PublishTime); lag > maxBookLag {
				logs.Warnf("book for %s delayed %.1fs", book.MarketID, lag.Seconds())
			}
		}

		if book.Status == resources.MarketStatusClosed {
			// closing runs behind the order results already queued, so
			// strategies see settled state at close
			cm := &event.CloseMarket{MarketID: book.MarketID, MarketBook: book}
			if err := e.queue.TryPublish(event.CloseMarketEvent(cm)); err != nil {
				logs.Warnf("close for %s not queued: %v", book.MarketID, err)
			}
			continue
		}
		for _, mw := range e.middlewares {
			mw(m, book)
		}
		if e.simulationActive() {
			e.simulated.ProcessBook(book)
		}
		for _, st := range e.strategies.All() {
			if st.CheckSubscription(book) && st.CheckMarketBook(m, book) {
				e.safeHook(st.Name(), func() { st.ProcessMarketBook(m, book) })
			}
		}
	}
}

func (e *Engine) closeMarket(m *market.Market, book *resources.MarketBook) {
	if m.Closed {
		return
	}
	if e.simulationActive() {
		e.simulated.ProcessClose(book)
	}
	m.MarketBook = book
	m.Blotter.ProcessClosedMarket(book)
	for _, st := range e.strategies.All() {
		if st.CheckSubscription(book) {
			e.safeHook(st.Name(), func() { st.ProcessClosedMarket(m, book) })
		}
	}
	m.Close()
	logs.Infof("market %s closed, %d orders", m.MarketID, m.Blotter.Len())

	// settlement waits behind the close results the simulator just queued
	if e.simulationActive() {
		if err := e.queue.TryPublish(event.CustomEvent(func(event.Event) error {
			e.settleSimulated(m)
			return nil
		})); err != nil {
			logs.Warnf("settlement for %s not queued: %v", m.MarketID, err)
		}
	}
	e.SweepMarkets()
}

func (e *Engine) processCloseMarketEvent(cm *event.CloseMarket) {
	if cm == nil {
		return
	}
	m, ok := e.markets.Get(cm.MarketID)
	if !ok {
		logs.Warnf("close for unknown market %s", cm.MarketID)
		return
	}
	book := cm.MarketBook
	if book == nil {
		book = m.MarketBook
	}
	if book == nil {
		// raw-only market, nothing to settle
		if m.Closed {
			return
		}
		for _, st := range e.strategies.All() {
			if st.SubscribedToRawStream(cm.StreamID) {
				e.safeHook(st.Name(), func() { st.ProcessClosedMarket(m, nil) })
			}
		}
		m.Close()
		logs.Infof("market %s closed from raw feed", m.MarketID)
		e.SweepMarkets()
		return
	}
	e.closeMarket(m, book)
}

func (e *Engine) processRawData(raw *resources.RawData) {
	if raw == nil {
		return
	}
	for _, datum := range raw.Data {
		id, _ := datum["id"].(string)
		if id == "" {
			continue
		}
		m, ok := e.markets.Get(id)
		if !ok {
			// raw-only market, no decoded book until one arrives
			e.markets.Add(market.New(id, nil, e.clk, e))
			logs.Infof("market %s added from raw feed", id)
		} else if m.Closed {
			m.Open()
			logs.Infof("market %s reopened from raw feed", id)
		}
		if def, ok := datum["marketDefinition"].(map[string]any); ok {
			if status, _ := def["status"].(string); status == resources.MarketStatusClosed {
				cm := &event.CloseMarket{MarketID: id, StreamID: raw.StreamID}
				if err := e.queue.TryPublish(event.CloseMarketEvent(cm)); err != nil {
					logs.Warnf("close for %s not queued: %v", id, err)
				}
			}
		}
	}
	for _, st := range e.strategies.All() {
		if !st.SubscribedToRawStream(raw.StreamID) {
			continue
		}
		for _, datum := range raw.Data {
			e.safeHook(st.Name(), func() { st.ProcessRawData(raw.StreamID, raw.PublishTime, datum) })
		}
	}
}

func (e *Engine) processMarketCatalogues(catalogues []*resources.MarketCatalogue) {
	for _, c := range catalogues {
		if m, ok := e.markets.Get(c.MarketID); ok {
			m.MarketCatalogue = c
		}
	}
}

func (e *Engine) processCurrentOrders(co *resources.CurrentOrders) {
	if co == nil {
		return
	}
	for i := range co.Orders {
		c := co.Orders[i]
		m, ok := e.markets.Get(c.MarketID)
		if !ok {
			logs.Warnf("order update for unknown market %s", c.MarketID)
			continue
		}
		o := e.resolveOrder(m, c)
		if o == nil {
			continue
		}
		if err := order.ProcessCurrent(o, c); err != nil {
			logs.Errorf("order %s reconcile failed: %v", o.ID, err)
		}
		if o.Complete() {
			m.Blotter.CompleteOrder(o)
			e.notifyCompleted(o)
		}
	}
	// every strategy is woken on every open market, whether or not this
	// snapshot touched it, so resting-order management keeps running
	for _, m := range e.markets.Open() {
		for _, st := range e.strategies.All() {
			e.safeHook(st.Name(), func() { st.ProcessOrders(m, m.Blotter.StrategyOrders(st)) })
		}
	}
}

// resolveOrder maps an exchange snapshot to its local order: by customer
// reference first, then by bet id, finally by rebuilding the order when the
// reference names a known strategy (recovery after a restart).
func (e *Engine) resolveOrder(m *market.Market, c resources.CurrentOrder) *order.Order {
	hash, id, ok := order.ParseCustomerOrderRef(c.CustomerOrderRef)
	if ok {
		if o, found := m.Blotter.Order(id); found {
			return o
		}
	}
	if o, found := m.Blotter.OrderByBetID(c.BetID); found {
		return o
	}
	if ok {
		if st, found := e.strategies.Lookup(hash); found {
			return e.recoverOrder(m, st, id, c)
		}
	}
	return nil
}

func (e *Engine) recoverOrder(m *market.Market, st strategy.Strategy, id string, c resources.CurrentOrder) *order.Order {
	var ot order.OrderType
	switch c.OrderType {
	case "LIMIT_ON_CLOSE":
		ot = order.LimitOnClose{Price: c.PriceSize.Price, Liability: c.BSPLiability}
	case "MARKET_ON_CLOSE":
		ot = order.MarketOnClose{Liability: c.BSPLiability}
	default:
		ot = order.Limit{Price: c.PriceSize.Price, Size: c.PriceSize.Size, PersistenceType: c.PersistenceType}
	}
	trade := order.NewTrade(c.MarketID, c.SelectionID, c.Handicap, st, c.PlacedDate)
	o := trade.CreateOrder(order.Side(c.Side), ot, c.PlacedDate)
	o.ID = id
	o.BetID = c.BetID
	m.Blotter.Insert(o)
	e.notifyPlaced(o)
	logs.Infof("order %s recovered for strategy %s", id, st.Name())
	return o
}

func (e *Engine) processClearedOrders(cleared *resources.ClearedOrders) {
	if cleared == nil {
		return
	}
	m, ok := e.markets.Get(cleared.MarketID)
	if !ok {
		logs.Warnf("cleared orders for unknown market %s", cleared.MarketID)
		return
	}
	settled := m.Blotter.ProcessClearedOrders(cleared)
	logs.Infof("market %s settled %d of %d cleared orders", cleared.MarketID, len(settled), len(cleared.Orders))
	if len(settled) == 0 {
		return
	}
	if err := e.queue.TryPublish(event.ClearedOrdersMetaEvent(settled)); err != nil {
		logs.Warnf("cleared orders meta dropped: %v", err)
	}
}

func (e *Engine) processCustom(ev event.Event) error {
	if ev.Custom == nil {
		return nil
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("custom event panic: %v", r)
			}
		}()
		return ev.Custom(ev)
	}()
	if err != nil {
		if e.cfg.RaiseErrors {
			return err
		}
		logs.Errorf("custom event failed: %v", err)
	}
	return nil
}
