// Package sink records settlement results. The runner receives settled
// orders on the dispatcher goroutine and hands them to a store on its own
// goroutine, so a slow database never stalls event processing.
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
)

// ClearedOrderRecord is one settled order as persisted.
type ClearedOrderRecord struct {
	ID           uint   `gorm:"primaryKey"`
	OrderID      string `gorm:"index"`
	BetID        string
	MarketID     string `gorm:"index"`
	SelectionID  int64
	Handicap     float64
	Side         string
	Strategy     string `gorm:"index"`
	OrderKind    string
	PriceMatched float64
	SizeSettled  float64
	Profit       float64
	Commission   float64
	RunnerStatus string
	SettledAt    time.Time
	CreatedAt    time.Time
}

// ClearedMarketRecord is one market-level settlement summary as persisted.
type ClearedMarketRecord struct {
	ID         uint   `gorm:"primaryKey"`
	MarketID   string `gorm:"index"`
	Profit     float64
	Commission float64
	BetCount   int
	CreatedAt  time.Time
}

// Store persists settlement records.
type Store interface {
	SaveClearedOrders(ctx context.Context, records []ClearedOrderRecord) error
	SaveClearedMarkets(ctx context.Context, records []ClearedMarketRecord) error
}

type job struct {
	orders  []ClearedOrderRecord
	markets []ClearedMarketRecord
}

// Runner is the engine-facing settlement recorder. Hand-offs are
// non-blocking; when the store falls behind, results are dropped with a
// warning rather than stalling the dispatcher.
type Runner struct {
	name  string
	store Store
	jobs  chan job

	stop sync.Once
	done chan struct{}
}

// NewRunner starts a recorder around a store.
func NewRunner(name string, store Store, buffer int) *Runner {
	if buffer <= 0 {
		buffer = 128
	}
	r := &Runner{
		name:  name,
		store: store,
		jobs:  make(chan job, buffer),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Runner) Name() string { return r.name }

// ProcessSettledOrders converts settled orders to records and queues them.
func (r *Runner) ProcessSettledOrders(settled []*order.Order) {
	records := make([]ClearedOrderRecord, 0, len(settled))
	for _, o := range settled {
		if o.Cleared == nil {
			continue
		}
		records = append(records, recordFromOrder(o))
	}
	if len(records) == 0 {
		return
	}
	r.enqueue(job{orders: records})
}

// ProcessClearedMarkets converts market summaries to records and queues
// them.
func (r *Runner) ProcessClearedMarkets(cleared *resources.ClearedMarkets) {
	if cleared == nil || len(cleared.Markets) == 0 {
		return
	}
	records := make([]ClearedMarketRecord, 0, len(cleared.Markets))
	for _, m := range cleared.Markets {
		records = append(records, ClearedMarketRecord{
			MarketID:   m.MarketID,
			Profit:     m.Profit,
			Commission: m.Commission,
			BetCount:   m.BetCount,
		})
	}
	r.enqueue(job{markets: records})
}

func (r *Runner) enqueue(j job) {
	select {
	case r.jobs <- j:
	default:
		logs.Warnf("sink %s backlog full, dropping %d order and %d market records",
			r.name, len(j.orders), len(j.markets))
	}
}

// Shutdown stops the recorder after flushing queued jobs.
func (r *Runner) Shutdown() {
	r.stop.Do(func() { close(r.jobs) })
	<-r.done
}

func (r *Runner) run() {
	defer close(r.done)
	for j := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if len(j.orders) > 0 {
			if err := r.store.SaveClearedOrders(ctx, j.orders); err != nil {
				logs.Errorf("sink %s save orders failed: %v", r.name, err)
			}
		}
		if len(j.markets) > 0 {
			if err := r.store.SaveClearedMarkets(ctx, j.markets); err != nil {
				logs.Errorf("sink %s save markets failed: %v", r.name, err)
			}
		}
		cancel()
	}
}

func recordFromOrder(o *order.Order) ClearedOrderRecord {
	strategyName := ""
	if o.Trade != nil && o.Trade.Strategy != nil {
		strategyName = o.Trade.Strategy.Name()
	}
	kind := ""
	if o.OrderType != nil {
		kind = o.OrderType.WireName()
	}
	return ClearedOrderRecord{
		OrderID:      o.ID,
		BetID:        o.BetID,
		MarketID:     o.MarketID,
		SelectionID:  o.SelectionID,
		Handicap:     o.Handicap,
		Side:         string(o.Side),
		Strategy:     strategyName,
		OrderKind:    kind,
		PriceMatched: o.Cleared.PriceMatched,
		SizeSettled:  o.Cleared.SizeSettled,
		Profit:       o.Cleared.Profit,
		Commission:   o.Cleared.Commission,
		RunnerStatus: o.RunnerStatus,
		SettledAt:    o.Cleared.SettledDate,
	}
}
