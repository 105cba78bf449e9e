package backtest

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentmele/flumine/internal/client"
	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/config"
	"github.com/vincentmele/flumine/internal/engine"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/order"
	"github.com/vincentmele/flumine/internal/resources"
	"github.com/vincentmele/flumine/internal/strategy"
)

var t0 = time.Date(2024, 5, 4, 13, 0, 0, 0, time.UTC)

func writeRecording(t *testing.T, name string, books ...*resources.MarketBook) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, b := range books {
		require.NoError(t, enc.Encode(b))
	}
	return path
}

func openBook(marketID string, at time.Time, back []resources.PriceSize) *resources.MarketBook {
	return &resources.MarketBook{
		MarketID:    marketID,
		Status:      resources.MarketStatusOpen,
		PublishTime: at,
		Runners: []resources.RunnerBook{{
			SelectionID: 123,
			Status:      "ACTIVE",
			EX:          resources.ExchangePrices{AvailableToBack: back},
		}},
	}
}

func closedBook(marketID string, at time.Time, runnerStatus string) *resources.MarketBook {
	return &resources.MarketBook{
		MarketID:    marketID,
		Status:      resources.MarketStatusClosed,
		PublishTime: at,
		Runners:     []resources.RunnerBook{{SelectionID: 123, Status: runnerStatus}},
	}
}

func TestReaderStreamsBooks(t *testing.T) {
	path := writeRecording(t, "rec.jsonl",
		openBook("1.23", t0, nil),
		openBook("1.23", t0.Add(time.Second), nil),
	)
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	first, ok := r.Peek()
	require.True(t, ok)
	assert.Equal(t, t0, first.PublishTime)

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "1.23", got.MarketID)

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMergerOrdersAcrossFiles(t *testing.T) {
	a, err := Open(writeRecording(t, "a.jsonl",
		openBook("1.1", t0, nil),
		openBook("1.1", t0.Add(2*time.Second), nil),
	))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(writeRecording(t, "b.jsonl",
		openBook("1.2", t0.Add(time.Second), nil),
		openBook("1.2", t0.Add(2*time.Second), nil),
	))
	require.NoError(t, err)
	defer b.Close()

	m := &merger{readers: []*Reader{a, b}}

	batch, err := m.nextBatch()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "1.1", batch[0].MarketID)

	batch, err = m.nextBatch()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "1.2", batch[0].MarketID)

	// equal publish times tick together
	batch, err = m.nextBatch()
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = m.nextBatch()
	assert.Equal(t, io.EOF, err)
}

// backOnce backs selection 123 on the first book it sees.
type backOnce struct {
	strategy.Base
	placed *order.Order
}

func (s *backOnce) CheckMarketBook(*market.Market, *resources.MarketBook) bool { return true }

func (s *backOnce) ProcessMarketBook(m *market.Market, book *resources.MarketBook) {
	if s.placed != nil {
		return
	}
	trade := order.NewTrade(m.MarketID, 123, 0, s, book.PublishTime)
	o := trade.CreateOrder(order.Back, order.Limit{Price: 2.0, Size: 5, PersistenceType: "PERSIST"}, book.PublishTime)
	if err := m.PlaceOrder(o); err == nil {
		s.placed = o
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	ladder := []resources.PriceSize{{Price: 2.02, Size: 100}}
	path := writeRecording(t, "market.jsonl",
		openBook("1.23", t0, ladder),
		openBook("1.23", t0.Add(time.Second), ladder),
		closedBook("1.23", t0.Add(time.Minute), "WINNER"),
	)

	cfg := config.New()
	cfg.SetSimulated(true)
	clk := clock.NewSimulated(t0)
	e := engine.New(cfg, clk)
	e.AddClient(client.NewBacktest())
	st := &backOnce{Base: strategy.Base{StrategyName: "backer"}}
	require.NoError(t, e.AddStrategy(st))

	runner := NewRunner(e, clk, path)
	require.NoError(t, runner.Run(context.Background()))

	require.NotNil(t, st.placed)
	o := st.placed
	assert.Equal(t, order.StatusExecutionComplete, o.Status)
	assert.Equal(t, 5.0, o.SizeMatched)
	assert.Equal(t, 2.02, o.AveragePriceMatched)
	assert.Equal(t, "WINNER", o.RunnerStatus)

	require.NotNil(t, o.Cleared)
	// 5 * (2.02 - 1) gross, less 5% commission
	assert.InDelta(t, 4.845, o.Cleared.Profit, 1e-9)

	m, ok := e.Markets().Get("1.23")
	require.True(t, ok)
	assert.True(t, m.Closed)
	assert.Equal(t, 0, e.Simulated().PendingCount())
}
