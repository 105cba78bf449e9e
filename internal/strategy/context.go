package strategy

import "time"

type runnerKey struct {
	marketID    string
	selectionID int64
	handicap    float64
}

// RunnerContext tracks a strategy's engagement with one runner so it can
// avoid stacking trades on a selection it is already invested in.
type RunnerContext struct {
	// Invested stays true once a trade has ever been placed on the runner.
	Invested       bool
	DatetimePlaced time.Time
	DatetimeReset  time.Time

	liveTrades map[string]struct{}
}

// Place records a trade going live on the runner.
func (rc *RunnerContext) Place(tradeID string, now time.Time) {
	if rc.liveTrades == nil {
		rc.liveTrades = make(map[string]struct{})
	}
	rc.liveTrades[tradeID] = struct{}{}
	rc.Invested = true
	rc.DatetimePlaced = now
}

// Reset drops a completed trade from the live set.
func (rc *RunnerContext) Reset(tradeID string, now time.Time) {
	delete(rc.liveTrades, tradeID)
	rc.DatetimeReset = now
}

// TradeCount is the number of trades currently live on the runner.
func (rc *RunnerContext) TradeCount() int {
	return len(rc.liveTrades)
}

// Executable reports whether any trade is still working on the runner.
func (rc *RunnerContext) Executable() bool {
	return len(rc.liveTrades) > 0
}

// ElapsedSecondsPlaced is the age of the last placement, -1 before any.
func (rc *RunnerContext) ElapsedSecondsPlaced(now time.Time) float64 {
	if rc.DatetimePlaced.IsZero() {
		return -1
	}
	return now.Sub(rc.DatetimePlaced).Seconds()
}

// RunnerContext returns the per-runner state for a selection, creating it on
// first use.
func (b *Base) RunnerContext(marketID string, selectionID int64, handicap float64) *RunnerContext {
	if b.runners == nil {
		b.runners = make(map[runnerKey]*RunnerContext)
	}
	key := runnerKey{marketID: marketID, selectionID: selectionID, handicap: handicap}
	rc, ok := b.runners[key]
	if !ok {
		rc = &RunnerContext{}
		b.runners[key] = rc
	}
	return rc
}
