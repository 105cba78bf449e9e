// Package execution submits order packages to the exchange, either over the
// live transport or through the matching simulator. Results come back as
// current-order events so both paths converge on the same reconciliation
// code.
package execution

import (
	"hash/fnv"
	"sync"
)

// Pool runs submission tasks with per-market ordering: every task for a
// market lands on the same shard, so packages for one market are executed in
// the order they were created while markets proceed in parallel.
type Pool struct {
	shards []chan func()
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers shards. With workers <= 0 tasks run inline on the
// caller, which backtests rely on for determinism.
func NewPool(workers int) *Pool {
	p := &Pool{}
	if workers <= 0 {
		return p
	}
	p.shards = make([]chan func(), workers)
	for i := range p.shards {
		ch := make(chan func(), 64)
		p.shards[i] = ch
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range ch {
				task()
			}
		}()
	}
	return p
}

// Inline reports whether tasks run on the caller's goroutine.
func (p *Pool) Inline() bool {
	return len(p.shards) == 0
}

// Submit schedules a task on the market's shard, or runs it inline for a
// poolless instance.
func (p *Pool) Submit(marketID string, task func()) {
	if len(p.shards) == 0 {
		task()
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.shards[shardIndex(marketID, len(p.shards))] <- task
	p.mu.Unlock()
}

// Shutdown stops accepting tasks and waits for in-flight ones.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, ch := range p.shards {
		close(ch)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func shardIndex(marketID string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(marketID))
	return int(h.Sum32() % uint32(shards))
}
