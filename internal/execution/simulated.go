package execution

import (
	"context"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/event"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// Latency models the exchange round trip per request type.
type Latency struct {
	Place   time.Duration
	Cancel  time.Duration
	Update  time.Duration
	Replace time.Duration
}

// DefaultLatency mirrors typical exchange response times.
var DefaultLatency = Latency{
	Place:   120 * time.Millisecond,
	Cancel:  170 * time.Millisecond,
	Update:  150 * time.Millisecond,
	Replace: 280 * time.Millisecond,
}

// Simulated matches order packages against market book snapshots instead of
// the exchange. Packages become eligible after their simulated latency plus
// any in-play bet delay; resting remainders re-match as later snapshots
// arrive.
type Simulated struct {
	clk   clock.Clock
	pool  *Pool
	queue *event.Queue

	latency Latency

	mu      sync.Mutex
	pending []*order.Package
	resting map[string][]*restingBet
	inPlay  map[string]bool

	betSeq atomic.Int64
}

// NewSimulated builds a simulator against the given clock.
func NewSimulated(clk clock.Clock, pool *Pool, queue *event.Queue, latency Latency) *Simulated {
	return &Simulated{
		clk:     clk,
		pool:    pool,
		queue:   queue,
		latency: latency,
		resting: make(map[string][]*restingBet),
		inPlay:  make(map[string]bool),
	}
}

// Execute accepts a package and holds it until its latency has elapsed.
func (e *Simulated) Execute(pkg *order.Package) error {
	switch pkg.Type {
	case order.PackagePlace:
		pkg.SimulatedDelay = e.latency.Place
	case order.PackageCancel:
		pkg.SimulatedDelay = e.latency.Cancel
	case order.PackageUpdate:
		pkg.SimulatedDelay = e.latency.Update
	case order.PackageReplace:
		pkg.SimulatedDelay = e.latency.Replace
	default:
		return errors.Domain("unexpected package type: %d", pkg.Type)
	}
	e.mu.Lock()
	e.pending = append(e.pending, pkg)
	e.mu.Unlock()
	return nil
}

// PendingCount reports packages not yet processed.
func (e *Simulated) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// ProcessBook advances the simulation for one market snapshot: lapses
// non-persistent bets on the in-play turn, re-matches resting remainders,
// then processes packages whose latency has elapsed.
func (e *Simulated) ProcessBook(book *resources.MarketBook) {
	now := e.clk.Now()
	e.pool.Submit(book.MarketID, func() { e.processBook(book, now) })
}

func (e *Simulated) processBook(book *resources.MarketBook, now time.Time) {
	e.mu.Lock()
	var snapshots []resources.CurrentOrder
	if book.InPlay && !e.inPlay[book.MarketID] {
		e.inPlay[book.MarketID] = true
		snapshots = append(snapshots, e.lapseNonPersistent(book.MarketID)...)
	}
	snapshots = append(snapshots, e.rematch(book)...)
	for _, pkg := range e.takeEligible(book.MarketID, now) {
		snapshots = append(snapshots, e.processPackage(pkg, book)...)
	}
	e.mu.Unlock()

	// published outside the lock so a full queue cannot wedge Execute callers
	e.publish(snapshots)
}

// ProcessClose settles a closing market: any still-pending packages are
// processed against the final book, on-close bets take starting price, and
// limit remainders lapse.
func (e *Simulated) ProcessClose(book *resources.MarketBook) {
	e.pool.Submit(book.MarketID, func() { e.processClose(book) })
}

func (e *Simulated) processClose(book *resources.MarketBook) {
	e.mu.Lock()
	var snapshots []resources.CurrentOrder
	for _, pkg := range e.takeAll(book.MarketID) {
		snapshots = append(snapshots, e.processPackage(pkg, book)...)
	}
	for _, rb := range e.resting[book.MarketID] {
		snapshots = append(snapshots, e.settle(rb, book))
	}
	delete(e.resting, book.MarketID)
	delete(e.inPlay, book.MarketID)
	e.mu.Unlock()

	e.publish(snapshots)
}

func (e *Simulated) settle(rb *restingBet, book *resources.MarketBook) resources.CurrentOrder {
	if !rb.onClose {
		rb.lapsed = rb.remaining
		rb.remaining = 0
		return rb.snapshot(resources.OrderStatusExecutionComplete)
	}

	sp := 0.0
	if runner, ok := book.Runner(rb.selectionID, rb.handicap); ok {
		sp = runner.SP.ActualSP
	}
	matchable := sp > 1
	if matchable && rb.limitOnClose {
		if rb.side == order.Back {
			matchable = sp >= rb.price
		} else {
			matchable = sp <= rb.price
		}
	}
	if !matchable {
		rb.lapsed = rb.liability
		return rb.snapshot(resources.OrderStatusExecutionComplete)
	}

	if rb.side == order.Back {
		rb.matched = rb.liability
	} else {
		rb.matched = round2(rb.liability / (sp - 1))
	}
	rb.avgPrice = sp
	return rb.snapshot(resources.OrderStatusExecutionComplete)
}

func (e *Simulated) takeEligible(marketID string, now time.Time) []*order.Package {
	var taken []*order.Package
	kept := e.pending[:0]
	for _, pkg := range e.pending {
		if pkg.MarketID == marketID && !pkg.EligibleAt().After(now) {
			taken = append(taken, pkg)
		} else {
			kept = append(kept, pkg)
		}
	}
	e.pending = kept
	return taken
}

func (e *Simulated) takeAll(marketID string) []*order.Package {
	var taken []*order.Package
	kept := e.pending[:0]
	for _, pkg := range e.pending {
		if pkg.MarketID == marketID {
			taken = append(taken, pkg)
		} else {
			kept = append(kept, pkg)
		}
	}
	e.pending = kept
	return taken
}

func (e *Simulated) processPackage(pkg *order.Package, book *resources.MarketBook) []resources.CurrentOrder {
	var snapshots []resources.CurrentOrder
	switch pkg.Type {
	case order.PackagePlace:
		for _, o := range pkg.Orders {
			snapshots = append(snapshots, e.place(o, book))
		}
	case order.PackageCancel:
		for _, o := range pkg.Orders {
			if snap, ok := e.cancel(o.ID, book.MarketID, pkg.SizeReduction); ok {
				snapshots = append(snapshots, snap)
			}
		}
	case order.PackageUpdate:
		for _, o := range pkg.Orders {
			if rb, ok := e.find(book.MarketID, o.ID); ok {
				rb.persistence = pkg.NewPersistence
				snapshots = append(snapshots, rb.snapshot(resources.OrderStatusExecutable))
			}
		}
	case order.PackageReplace:
		for _, o := range pkg.Orders {
			if snap, ok := e.cancel(o.ID, book.MarketID, 0); ok {
				snapshots = append(snapshots, snap)
			}
		}
		if pkg.Replacement != nil {
			snapshots = append(snapshots, e.place(pkg.Replacement, book))
		}
	}
	return snapshots
}

func (e *Simulated) place(o *order.Order, book *resources.MarketBook) resources.CurrentOrder {
	rb := &restingBet{
		orderID:     o.ID,
		ref:         o.CustomerOrderRef(),
		betID:       e.newBetID(),
		marketID:    o.MarketID,
		selectionID: o.SelectionID,
		handicap:    o.Handicap,
		side:        o.Side,
	}
	switch ot := o.OrderType.(type) {
	case order.Limit:
		rb.wireName = ot.WireName()
		rb.persistence = ot.PersistenceType
		rb.price = ot.Price
		rb.size = ot.Size
		rb.remaining = ot.Size
		if runner, ok := book.Runner(o.SelectionID, o.Handicap); ok {
			rb.matchAgainst(runner)
		}
		if rb.remaining == 0 {
			return rb.snapshot(resources.OrderStatusExecutionComplete)
		}
		e.resting[rb.marketID] = append(e.resting[rb.marketID], rb)
		return rb.snapshot(resources.OrderStatusExecutable)
	case order.LimitOnClose:
		rb.wireName = ot.WireName()
		rb.onClose = true
		rb.limitOnClose = true
		rb.price = ot.Price
		rb.liability = ot.Liability
	case order.MarketOnClose:
		rb.wireName = ot.WireName()
		rb.onClose = true
		rb.liability = ot.Liability
	}
	e.resting[rb.marketID] = append(e.resting[rb.marketID], rb)
	return rb.snapshot(resources.OrderStatusExecutable)
}

func (e *Simulated) cancel(orderID, marketID string, sizeReduction float64) (resources.CurrentOrder, bool) {
	rb, ok := e.find(marketID, orderID)
	if !ok {
		return resources.CurrentOrder{}, false
	}
	reduction := rb.remaining
	if sizeReduction > 0 && sizeReduction < reduction {
		reduction = sizeReduction
	}
	rb.cancelled = round2(rb.cancelled + reduction)
	rb.remaining = round2(rb.remaining - reduction)
	if rb.remaining == 0 {
		e.remove(marketID, rb)
		return rb.snapshot(resources.OrderStatusExecutionComplete), true
	}
	return rb.snapshot(resources.OrderStatusExecutable), true
}

func (e *Simulated) find(marketID, orderID string) (*restingBet, bool) {
	for _, rb := range e.resting[marketID] {
		if rb.orderID == orderID {
			return rb, true
		}
	}
	return nil, false
}

func (e *Simulated) remove(marketID string, target *restingBet) {
	bets := e.resting[marketID]
	for i, rb := range bets {
		if rb == target {
			e.resting[marketID] = append(bets[:i], bets[i+1:]...)
			return
		}
	}
}

func (e *Simulated) rematch(book *resources.MarketBook) []resources.CurrentOrder {
	var snapshots []resources.CurrentOrder
	bets := e.resting[book.MarketID]
	kept := bets[:0]
	for _, rb := range bets {
		if rb.onClose {
			kept = append(kept, rb)
			continue
		}
		runner, ok := book.Runner(rb.selectionID, rb.handicap)
		if ok && rb.matchAgainst(runner) {
			if rb.remaining == 0 {
				snapshots = append(snapshots, rb.snapshot(resources.OrderStatusExecutionComplete))
				continue
			}
			snapshots = append(snapshots, rb.snapshot(resources.OrderStatusExecutable))
		}
		kept = append(kept, rb)
	}
	e.resting[book.MarketID] = kept
	return snapshots
}

func (e *Simulated) lapseNonPersistent(marketID string) []resources.CurrentOrder {
	var snapshots []resources.CurrentOrder
	bets := e.resting[marketID]
	kept := bets[:0]
	for _, rb := range bets {
		if !rb.onClose && rb.persistence == "LAPSE" {
			rb.lapsed = rb.remaining
			rb.remaining = 0
			snapshots = append(snapshots, rb.snapshot(resources.OrderStatusExecutionComplete))
			continue
		}
		kept = append(kept, rb)
	}
	e.resting[marketID] = kept
	return snapshots
}

func (e *Simulated) publish(snapshots []resources.CurrentOrder) {
	if len(snapshots) == 0 {
		return
	}
	ev := event.CurrentOrdersEvent(&resources.CurrentOrders{Orders: snapshots})
	if e.pool.Inline() {
		// on the dispatcher goroutine blocking would self-deadlock, and the
		// caller drains the queue before the next batch anyway
		if err := e.queue.TryPublish(ev); err != nil {
			logs.Warnf("simulated results dropped: %v", err)
		}
		return
	}
	// a dropped acknowledgment desyncs local order state for good, so pool
	// workers wait for queue room
	if err := e.queue.Publish(context.Background(), ev); err != nil {
		logs.Errorf("simulated results dropped: %v", err)
	}
}

func (e *Simulated) newBetID() string {
	return strconv.FormatInt(100000000+e.betSeq.Add(1), 10)
}

// restingBet is the simulator's private view of one working bet.
type restingBet struct {
	orderID     string
	ref         string
	betID       string
	marketID    string
	selectionID int64
	handicap    float64
	side        order.Side
	wireName    string
	persistence string

	price     float64
	size      float64
	remaining float64
	matched   float64
	avgPrice  float64
	cancelled float64
	lapsed    float64

	onClose      bool
	limitOnClose bool
	liability    float64
}

// matchAgainst fills the bet from the runner's available ladder: backs take
// available-to-back rungs at or above the limit price, lays take
// available-to-lay rungs at or below it. Reports whether anything filled.
func (rb *restingBet) matchAgainst(runner *resources.RunnerBook) bool {
	rungs := runner.EX.AvailableToBack
	crosses := func(p float64) bool { return p >= rb.price }
	if rb.side == order.Lay {
		rungs = runner.EX.AvailableToLay
		crosses = func(p float64) bool { return p <= rb.price }
	}

	filled := false
	for _, rung := range rungs {
		if rb.remaining == 0 {
			break
		}
		if rung.Price <= 1 || rung.Size <= 0 || !crosses(rung.Price) {
			continue
		}
		take := math.Min(rb.remaining, rung.Size)
		rb.avgPrice = weightedPrice(rb.avgPrice, rb.matched, rung.Price, take)
		rb.matched = round2(rb.matched + take)
		rb.remaining = round2(rb.remaining - take)
		filled = true
	}
	return filled
}

func weightedPrice(avg, matched, price, take float64) float64 {
	total := matched + take
	if total == 0 {
		return 0
	}
	return round2((avg*matched + price*take) / total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (rb *restingBet) snapshot(status string) resources.CurrentOrder {
	return resources.CurrentOrder{
		BetID:               rb.betID,
		MarketID:            rb.marketID,
		SelectionID:         rb.selectionID,
		Handicap:            rb.handicap,
		Side:                string(rb.side),
		Status:              status,
		PersistenceType:     rb.persistence,
		OrderType:           rb.wireName,
		PriceSize:           resources.PriceSize{Price: rb.price, Size: rb.size},
		AveragePriceMatched: rb.avgPrice,
		SizeMatched:         rb.matched,
		SizeRemaining:       rb.remaining,
		SizeCancelled:       rb.cancelled,
		SizeLapsed:          rb.lapsed,
		CustomerOrderRef:    rb.ref,
	}
}
