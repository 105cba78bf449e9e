package backtest

import (
	"context"
	"io"

	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/engine"
	"github.com/vincentmele/flumine/internal/event"
)

// Runner replays recordings through an engine. It acts as the dispatcher:
// every event is processed synchronously on the Run goroutine, with the
// simulated clock set to each batch's publish time. Settlement for closed
// markets is synthesized by the engine's simulated-mode close handling.
type Runner struct {
	engine *engine.Engine
	clk    *clock.Simulated
	paths  []string
}

// NewRunner builds a replay over the given recording files.
func NewRunner(e *engine.Engine, clk *clock.Simulated, paths ...string) *Runner {
	return &Runner{engine: e, clk: clk, paths: paths}
}

// Run replays every recording to completion: publish batch, advance clock,
// drain, finish strategies.
func (r *Runner) Run(ctx context.Context) error {
	readers := make([]*Reader, 0, len(r.paths))
	defer func() {
		for _, reader := range readers {
			reader.Close()
		}
	}()
	for _, path := range r.paths {
		reader, err := Open(path)
		if err != nil {
			return err
		}
		readers = append(readers, reader)
	}

	if err := r.engine.Start(ctx); err != nil {
		return err
	}

	m := &merger{readers: readers}
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := m.nextBatch()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		r.clk.Set(batch[0].PublishTime)
		if err := r.engine.Queue().TryPublish(event.MarketBookEvent(batch...)); err != nil {
			return err
		}
		if err := r.engine.ProcessQueued(); err != nil {
			return err
		}
		batches++
	}

	// Stop runs the strategy shutdown hooks over every replayed market
	r.engine.Stop(ctx)

	if pending := r.engine.Simulated().PendingCount(); pending > 0 {
		logs.Warnf("replay finished with %d unprocessed packages", pending)
	}
	logs.Infof("replay finished, %d batches, %d markets", batches, r.engine.Markets().Len())
	return nil
}
