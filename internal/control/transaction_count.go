package control

import (
	"sync"
	"time"

	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/errors"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
)

// TransactionCounter tracks exchange transactions in hourly windows. The
// exchange charges for traffic past the hourly allowance, so placements are
// blocked rather than billed.
type TransactionCounter struct {
	mu          sync.Mutex
	clk         clock.Clock
	limit       int
	windowStart time.Time
	count       int
	failed      int
}

// NewTransactionCounter creates a counter with an hourly limit. A limit of
// zero disables the check.
func NewTransactionCounter(clk clock.Clock, limit int) *TransactionCounter {
	return &TransactionCounter{clk: clk, limit: limit, windowStart: clk.Now()}
}

func (c *TransactionCounter) refresh() {
	now := c.clk.Now()
	if now.Sub(c.windowStart) >= time.Hour {
		c.windowStart = now
		c.count = 0
		c.failed = 0
	}
}

// Add records n submitted transactions.
func (c *TransactionCounter) Add(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	c.count += n
}

// Allow reports whether n more transactions fit in the current window,
// counting refusals.
func (c *TransactionCounter) Allow(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	if c.limit > 0 && c.count+n > c.limit {
		c.failed += n
		return false
	}
	return true
}

// Count is the number of transactions in the current window.
func (c *TransactionCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	return c.count
}

// Failed is the number of refused transactions in the current window.
func (c *TransactionCounter) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh()
	return c.failed
}

// MaxTransactionCount blocks placements once the hourly transaction
// allowance is used up.
type MaxTransactionCount struct {
	Counter *TransactionCounter
}

func (MaxTransactionCount) Name() string { return "MAX_TRANSACTION_COUNT" }

func (m MaxTransactionCount) Validate(_ *market.Market, _ *order.Order, packageType order.PackageType) error {
	if packageType != order.PackagePlace {
		return nil
	}
	if m.Counter == nil {
		return nil
	}
	if !m.Counter.Allow(1) {
		return errors.New("hourly transaction limit reached")
	}
	return nil
}
