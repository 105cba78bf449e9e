// Package worker runs the recurring background jobs of a live engine:
// session keep-alive, polling loops, market expiry sweeps.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/logs"
)

// BackgroundWorker invokes a task on a fixed interval after an optional
// start delay. A panicking or failing run is logged and retried on the next
// tick; it never takes the engine down.
type BackgroundWorker struct {
	name       string
	interval   time.Duration
	startDelay time.Duration
	task       func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a worker. An interval of zero means run once after the start
// delay.
func New(name string, interval, startDelay time.Duration, task func(ctx context.Context) error) *BackgroundWorker {
	return &BackgroundWorker{
		name:       name,
		interval:   interval,
		startDelay: startDelay,
		task:       task,
	}
}

// Name identifies the worker in logs.
func (w *BackgroundWorker) Name() string {
	return w.name
}

// Start launches the worker goroutine. Starting twice is a no-op.
func (w *BackgroundWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx)
}

// Shutdown stops the worker and waits for the current run to finish.
func (w *BackgroundWorker) Shutdown() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *BackgroundWorker) run(ctx context.Context) {
	defer close(w.done)

	if w.startDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.startDelay):
		}
	}

	w.invoke(ctx)
	if w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.invoke(ctx)
		}
	}
}

func (w *BackgroundWorker) invoke(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("worker %s panicked: %v", w.name, r)
		}
	}()
	if err := w.task(ctx); err != nil {
		logs.Errorf("worker %s failed: %v", w.name, err)
	}
}
