package engine

import (
	"context"
	"time"

	"github.com/vincentmele/flumine/internal/client"
	"github.com/vincentmele/flumine/internal/event"
	"github.com/vincentmele/flumine/internal/worker"
)

// onDispatcher runs fn on the dispatcher goroutine and waits for it. Workers
// use it to read dispatcher-owned state safely.
func (e *Engine) onDispatcher(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	err := e.queue.Publish(ctx, event.CustomEvent(func(event.Event) error {
		fn()
		close(done)
		return nil
	}))
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KeepAliveWorker extends the client session on an interval.
func KeepAliveWorker(c *client.Client, interval time.Duration) *worker.BackgroundWorker {
	return worker.New("keep_alive", interval, interval, func(ctx context.Context) error {
		return c.KeepAlive(ctx)
	})
}

// PollAccountBalanceWorker refreshes account funds and publishes them.
func PollAccountBalanceWorker(e *Engine, c *client.Client, interval time.Duration) *worker.BackgroundWorker {
	return worker.New("poll_account_balance", interval, 10*time.Second, func(ctx context.Context) error {
		if err := c.UpdateAccountDetails(ctx); err != nil {
			return err
		}
		if c.AccountFunds == nil {
			return nil
		}
		return e.queue.Publish(ctx, event.BalanceEvent(c.AccountFunds))
	})
}

// PollCurrentOrdersWorker reconciles local orders against the exchange's
// view, the safety net behind the streamed acknowledgments.
func PollCurrentOrdersWorker(e *Engine, c *client.Client, interval time.Duration) *worker.BackgroundWorker {
	return worker.New("poll_current_orders", interval, 30*time.Second, func(ctx context.Context) error {
		if c.API == nil {
			return nil
		}
		orders, err := c.API.CurrentOrders(ctx)
		if err != nil {
			return err
		}
		if orders == nil || len(orders.Orders) == 0 {
			return nil
		}
		return e.queue.Publish(ctx, event.CurrentOrdersEvent(orders))
	})
}

// PollMarketCatalogueWorker fetches static metadata for markets that lack
// it.
func PollMarketCatalogueWorker(e *Engine, c *client.Client, interval time.Duration) *worker.BackgroundWorker {
	return worker.New("poll_market_catalogue", interval, 20*time.Second, func(ctx context.Context) error {
		if c.API == nil {
			return nil
		}
		var ids []string
		err := e.onDispatcher(ctx, func() {
			for _, m := range e.markets.Open() {
				if m.MarketCatalogue == nil {
					ids = append(ids, m.MarketID)
				}
			}
		})
		if err != nil || len(ids) == 0 {
			return err
		}
		catalogues, err := c.API.MarketCatalogue(ctx, ids)
		if err != nil {
			return err
		}
		if len(catalogues) == 0 {
			return nil
		}
		return e.queue.Publish(ctx, event.MarketCatalogueEvent(catalogues...))
	})
}

// PollMarketClosureWorker fetches settlement results for closed markets that
// have orders awaiting them.
func PollMarketClosureWorker(e *Engine, c *client.Client, interval time.Duration) *worker.BackgroundWorker {
	return worker.New("poll_market_closure", interval, 30*time.Second, func(ctx context.Context) error {
		if c.API == nil {
			return nil
		}
		var ids []string
		err := e.onDispatcher(ctx, func() {
			for _, m := range e.markets.All() {
				if !m.Closed || m.Blotter.Len() == 0 {
					continue
				}
				if settled, ok := m.Context["settled"].(bool); ok && settled {
					continue
				}
				ids = append(ids, m.MarketID)
			}
		})
		if err != nil || len(ids) == 0 {
			return err
		}
		for _, id := range ids {
			cleared, err := c.API.ClearedOrders(ctx, id)
			if err != nil {
				return err
			}
			if cleared == nil || len(cleared.Orders) == 0 {
				continue
			}
			if err := e.queue.Publish(ctx, event.ClearedOrdersEvent(cleared)); err != nil {
				return err
			}
			id := id
			if err := e.onDispatcher(ctx, func() {
				if m, ok := e.markets.Get(id); ok {
					m.Context["settled"] = true
				}
			}); err != nil {
				return err
			}
		}
		markets, err := c.API.ClearedMarkets(ctx)
		if err != nil {
			return err
		}
		if markets == nil || len(markets.Markets) == 0 {
			return nil
		}
		return e.queue.Publish(ctx, event.ClearedMarketsEvent(markets))
	})
}

// SweepMarketsWorker periodically drops long-closed markets.
func SweepMarketsWorker(e *Engine, interval time.Duration) *worker.BackgroundWorker {
	return worker.New("sweep_markets", interval, interval, func(ctx context.Context) error {
		return e.onDispatcher(ctx, e.SweepMarkets)
	})
}
