package execution

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/control"
	"github.com/vincentmele/flumine/internal/event"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// Exchange is the transport slice live execution needs.
type Exchange interface {
	SubmitOrderPackage(ctx context.Context, pkg *order.Package) ([]resources.CurrentOrder, error)
}

const submitTimeout = 10 * time.Second

// Live submits packages to the exchange over the client transport and feeds
// the acknowledgments back through the event queue.
type Live struct {
	exchange Exchange
	pool     *Pool
	queue    *event.Queue

	// Counter, when set, records successful placements against the hourly
	// transaction allowance.
	Counter *control.TransactionCounter
}

// NewLive wires live execution to an exchange transport.
func NewLive(exchange Exchange, pool *Pool, queue *event.Queue) *Live {
	return &Live{exchange: exchange, pool: pool, queue: queue}
}

// Execute schedules the package on its market's shard.
func (e *Live) Execute(pkg *order.Package) error {
	e.pool.Submit(pkg.MarketID, func() { e.process(pkg) })
	return nil
}

func (e *Live) process(pkg *order.Package) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	results, err := e.exchange.SubmitOrderPackage(ctx, pkg)
	if err != nil {
		logs.Errorf("package %s %s submit failed: %v", pkg.ID, pkg.Type, err)
		return
	}
	if pkg.Type == order.PackagePlace && e.Counter != nil {
		e.Counter.Add(len(pkg.Orders))
	}
	publishResults(e.queue, pkg, results)
}

func publishResults(queue *event.Queue, pkg *order.Package, results []resources.CurrentOrder) {
	if len(results) == 0 {
		return
	}
	err := queue.TryPublish(event.CurrentOrdersEvent(&resources.CurrentOrders{Orders: results}))
	if err != nil {
		logs.Warnf("package %s results dropped: %v", pkg.ID, err)
	}
}
