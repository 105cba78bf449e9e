// Package engine owns the dispatcher: the single goroutine that drains the
// event queue and mutates markets, blotters and orders. Everything else
// communicates with it through events.
package engine

import (
	"context"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/client"
	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/config"
	"github.com/vincentmele/flumine/internal/control"
	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/event"
	"github.com/vincentmele/flumine/internal/execution"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
	"github.com/vincentmele/flumine/internal/strategy"
	"github.com/vincentmele/flumine/internal/worker"
)

// errTerminated stops the dispatcher loop cleanly.
var errTerminated = errors.New("terminated")

// MarketMiddleware runs against every delivered book on the dispatcher
// goroutine, before strategies see it.
type MarketMiddleware func(m *market.Market, book *resources.MarketBook)

// LogControl receives settlement results for recording. Implementations run
// on the dispatcher goroutine and must hand heavy work off.
type LogControl interface {
	Name() string
	ProcessSettledOrders(settled []*order.Order)
	ProcessClearedMarkets(cleared *resources.ClearedMarkets)
}

// Engine wires the framework together and dispatches events. All fields are
// mutated on the dispatcher goroutine once Run has started.
type Engine struct {
	cfg *config.Config
	clk clock.Clock

	queue      *event.Queue
	markets    *market.Markets
	strategies *strategy.Strategies

	clients     []*client.Client
	controls    []control.Control
	logControls []LogControl
	middlewares []MarketMiddleware
	workers     []*worker.BackgroundWorker

	counter   *control.TransactionCounter
	simulated *execution.Simulated
	simPool   *execution.Pool
	livePool  *execution.Pool
}

// New builds an engine around a resolved config. The clock is simulated for
// backtests and real otherwise.
func New(cfg *config.Config, clk clock.Clock) *Engine {
	queue := event.NewQueue(cfg.QueueSize)
	counter := control.NewTransactionCounter(clk, cfg.MaxTransactionCount)

	simWorkers := cfg.MaxExecutionWorkers
	if cfg.Simulated() {
		// synchronous execution keeps backtests deterministic
		simWorkers = 0
	}
	simPool := execution.NewPool(simWorkers)
	livePool := execution.NewPool(cfg.MaxExecutionWorkers)

	e := &Engine{
		cfg:        cfg,
		clk:        clk,
		queue:      queue,
		markets:    market.NewMarkets(),
		strategies: &strategy.Strategies{},
		counter:    counter,
		simPool:    simPool,
		livePool:   livePool,
	}
	e.simulated = execution.NewSimulated(clk, simPool, queue, execution.Latency{
		Place:   cfg.PlaceLatency,
		Cancel:  cfg.CancelLatency,
		Update:  cfg.UpdateLatency,
		Replace: cfg.ReplaceLatency,
	})
	e.controls = []control.Control{
		control.StrategyExposure{},
		control.MaxTransactionCount{Counter: counter},
	}
	return e
}

// Queue exposes the event queue for feeds and workers to publish into.
func (e *Engine) Queue() *event.Queue {
	return e.queue
}

// Markets exposes the registry. Read it only from the dispatcher goroutine.
func (e *Engine) Markets() *market.Markets {
	return e.markets
}

// Strategies exposes the registered strategies.
func (e *Engine) Strategies() *strategy.Strategies {
	return e.strategies
}

// Clock returns the engine clock.
func (e *Engine) Clock() clock.Clock {
	return e.clk
}

// Simulated exposes the matching simulator, used by backtests to check for
// unprocessed packages.
func (e *Engine) Simulated() *execution.Simulated {
	return e.simulated
}

// AddClient registers an exchange client and wires its execution: simulated
// for paper and backtest clients, live otherwise. The first client becomes
// the default for order routing and gains the exchange minimum checks.
func (e *Engine) AddClient(c *client.Client) {
	if c.Paper || e.cfg.Simulated() {
		c.Execution = e.simulated
	} else {
		live := execution.NewLive(c.API, e.livePool, e.queue)
		live.Counter = e.counter
		c.Execution = live
	}
	e.clients = append(e.clients, c)
	if len(e.clients) == 1 {
		e.controls = append([]control.Control{control.OrderValidation{Limits: c}}, e.controls...)
	}
}

// AddStrategy registers a strategy.
func (e *Engine) AddStrategy(s strategy.Strategy) error {
	if err := e.strategies.Add(s); err != nil {
		return err
	}
	if err := e.queue.TryPublish(event.StrategyEvent(s.Name())); err != nil {
		logs.Warnf("strategy event dropped: %v", err)
	}
	return nil
}

// AddWorker registers a background worker started with the engine.
func (e *Engine) AddWorker(w *worker.BackgroundWorker) {
	e.workers = append(e.workers, w)
}

// AddMarketMiddleware registers a book pre-processor.
func (e *Engine) AddMarketMiddleware(mw MarketMiddleware) {
	e.middlewares = append(e.middlewares, mw)
}

// AddLogControl registers a settlement recorder.
func (e *Engine) AddLogControl(lc LogControl) {
	e.logControls = append(e.logControls, lc)
	logs.Infof("log control %s registered", lc.Name())
}

func (e *Engine) defaultClient() (*client.Client, error) {
	if len(e.clients) == 0 {
		return nil, errors.New("no client registered")
	}
	return e.clients[0], nil
}

// Start logs clients in, refreshes account state, starts strategies and
// background workers.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.queue.TryPublish(event.ConfigEvent()); err != nil {
		logs.Warnf("config event dropped: %v", err)
	}
	for _, c := range e.clients {
		if err := c.Login(ctx); err != nil {
			return err
		}
		if err := c.UpdateAccountDetails(ctx); err != nil {
			logs.Warnf("account details unavailable: %v", err)
		}
	}
	e.strategies.Start()
	for _, w := range e.workers {
		w.Start(ctx)
	}
	logs.Infof("engine started, %d strategies, %d clients", e.strategies.Len(), len(e.clients))
	return nil
}

// Run starts the engine and drains the queue until termination. It always
// attempts a clean stop.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	err := e.queue.Run(ctx, e.handleEvent)
	if errors.Is(err, errTerminated) {
		err = nil
	}
	e.Stop(ctx)
	return err
}

// Stop runs strategy shutdown hooks, then shuts down workers, execution
// pools and client sessions.
func (e *Engine) Stop(ctx context.Context) {
	for _, m := range e.markets.All() {
		for _, st := range e.strategies.All() {
			e.safeHook(st.Name(), func() { st.Finish(m) })
		}
	}
	for _, w := range e.workers {
		w.Shutdown()
	}
	e.simPool.Shutdown()
	e.livePool.Shutdown()
	for _, c := range e.clients {
		if err := c.Logout(ctx); err != nil {
			logs.Warnf("logout failed: %v", err)
		}
	}
	logs.Info("engine stopped")
}

// ProcessQueued drains every queued event on the caller's goroutine. In
// replay mode the backtest runner is the dispatcher; nothing else may call
// this while Run is active.
func (e *Engine) ProcessQueued() error {
	for {
		ev, ok := e.queue.TryNext()
		if !ok {
			return nil
		}
		if err := e.handleEvent(ev); err != nil {
			if errors.Is(err, errTerminated) {
				return nil
			}
			return err
		}
	}
}

// Terminate asks the dispatcher to stop after the events already queued.
func (e *Engine) Terminate() {
	if err := e.queue.TryPublish(event.TerminationEvent()); err != nil {
		logs.Warnf("termination not queued: %v", err)
	}
}

// SweepMarkets drops markets that have been closed for longer than the
// configured expiry. Only meaningful in real-time mode; backtests keep
// closed markets for inspection.
func (e *Engine) SweepMarkets() {
	if e.cfg.Simulated() {
		return
	}
	for _, m := range e.markets.All() {
		if m.ElapsedSecondsClosed() > e.cfg.MarketExpiry.Seconds() {
			e.markets.Remove(m.MarketID)
			logs.Infof("market %s expired", m.MarketID)
		}
	}
}
