package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentmele/flumine/internal/backtest"
	"github.com/vincentmele/flumine/internal/clock"
	"github.com/vincentmele/flumine/internal/market"
	"github.com/vincentmele/flumine/internal/resources"
)

var t0 = time.Date(2024, 5, 4, 13, 0, 0, 0, time.UTC)

func book(marketID string, status string, at time.Time) *resources.MarketBook {
	return &resources.MarketBook{
		MarketID:    marketID,
		Status:      status,
		PublishTime: at,
		Runners:     []resources.RunnerBook{{SelectionID: 123, Status: "ACTIVE"}},
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{Dir: dir})
	require.NoError(t, err)

	m := market.New("1.23", book("1.23", resources.MarketStatusOpen, t0), clock.Real{}, nil)
	r.ProcessMarketBook(m, book("1.23", resources.MarketStatusOpen, t0))
	r.ProcessMarketBook(m, book("1.23", resources.MarketStatusOpen, t0.Add(time.Second)))
	r.ProcessClosedMarket(m, book("1.23", resources.MarketStatusClosed, t0.Add(time.Minute)))

	reader, err := backtest.Open(filepath.Join(dir, "1.23.jsonl"))
	require.NoError(t, err)
	defer reader.Close()

	got, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, t0, got.PublishTime)

	_, err = reader.Next()
	require.NoError(t, err)

	got, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, resources.MarketStatusClosed, got.Status)
}

func TestRecorderGzip(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Config{Dir: dir, Gzip: true})
	require.NoError(t, err)

	m := market.New("1.42", book("1.42", resources.MarketStatusOpen, t0), clock.Real{}, nil)
	r.ProcessMarketBook(m, book("1.42", resources.MarketStatusOpen, t0))
	r.Finish(nil)

	reader, err := backtest.Open(filepath.Join(dir, "1.42.jsonl.gz"))
	require.NoError(t, err)
	defer reader.Close()

	got, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "1.42", got.MarketID)
}

func TestRecorderConfigValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
