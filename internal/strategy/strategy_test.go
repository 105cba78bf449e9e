package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentmele/flumine/internal/resources"
)

func TestBaseCheckSubscription(t *testing.T) {
	base := &Base{
		StrategyName: "filters",
		Filter: MarketFilter{
			EventTypeIDs: []string{"7"},
			MarketTypes:  []string{"WIN"},
		},
	}

	matching := &resources.MarketBook{
		MarketID:         "1.23",
		MarketDefinition: &resources.MarketDefinition{EventTypeID: "7", MarketType: "WIN"},
	}
	assert.True(t, base.CheckSubscription(matching))

	wrongType := &resources.MarketBook{
		MarketID:         "1.23",
		MarketDefinition: &resources.MarketDefinition{EventTypeID: "7", MarketType: "PLACE"},
	}
	assert.False(t, base.CheckSubscription(wrongType))

	// filters beyond market id need a definition to match against
	noDefinition := &resources.MarketBook{MarketID: "1.23"}
	assert.False(t, base.CheckSubscription(noDefinition))

	assert.True(t, (&Base{}).CheckSubscription(noDefinition))
}

func TestBaseCheckSubscriptionMarketIDs(t *testing.T) {
	base := &Base{Filter: MarketFilter{MarketIDs: []string{"1.23"}}}
	assert.True(t, base.CheckSubscription(&resources.MarketBook{MarketID: "1.23"}))
	assert.False(t, base.CheckSubscription(&resources.MarketBook{MarketID: "1.24"}))
}

func TestBaseDefaults(t *testing.T) {
	base := &Base{StrategyName: "noop"}
	assert.Equal(t, float64(defaultMaxOrderExposure), base.MaxOrderExposure())
	assert.Equal(t, float64(defaultMaxSelectionExposure), base.MaxSelectionExposure())
	assert.False(t, base.CheckMarketBook(nil, nil))
	assert.False(t, base.SubscribedToRawStream(1))

	custom := &Base{OrderExposureLimit: 50, SelectionExposureLimit: 500, RawStreamIDs: []int{1}}
	assert.Equal(t, 50.0, custom.MaxOrderExposure())
	assert.Equal(t, 500.0, custom.MaxSelectionExposure())
	assert.True(t, custom.SubscribedToRawStream(1))
}

func TestRunnerContext(t *testing.T) {
	base := &Base{StrategyName: "ctx"}
	now := time.Date(2024, 5, 4, 13, 0, 0, 0, time.UTC)

	rc := base.RunnerContext("1.23", 123, 0)
	assert.Same(t, rc, base.RunnerContext("1.23", 123, 0))
	assert.False(t, rc.Invested)
	assert.Equal(t, -1.0, rc.ElapsedSecondsPlaced(now))

	rc.Place("trade-1", now)
	assert.True(t, rc.Invested)
	assert.True(t, rc.Executable())
	assert.Equal(t, 1, rc.TradeCount())
	assert.Equal(t, 60.0, rc.ElapsedSecondsPlaced(now.Add(time.Minute)))

	rc.Reset("trade-1", now.Add(time.Minute))
	assert.False(t, rc.Executable())
	// invested survives trade completion
	assert.True(t, rc.Invested)
}

func TestStrategiesAddDuplicate(t *testing.T) {
	var ss Strategies
	require.NoError(t, ss.Add(&Base{StrategyName: "a"}))
	require.NoError(t, ss.Add(&Base{StrategyName: "b"}))
	assert.Error(t, ss.Add(&Base{StrategyName: "a"}))
	assert.Equal(t, 2, ss.Len())
}

func TestStrategiesLookup(t *testing.T) {
	var ss Strategies
	a := &Base{StrategyName: "a"}
	require.NoError(t, ss.Add(a))

	got, ok := ss.Lookup(a.NameHash())
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = ss.Lookup("unknown")
	assert.False(t, ok)
}
