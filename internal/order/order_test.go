package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentmele/flumine/internal/resources"
)

type stubStrategy struct{ name string }

func (s stubStrategy) Name() string     { return s.name }
func (s stubStrategy) NameHash() string { return NameHash(s.name) }

var t0 = time.Date(2024, 5, 4, 13, 0, 0, 0, time.UTC)

func newTestOrder(t *testing.T, side Side, ot OrderType) *Order {
	t.Helper()
	trade := NewTrade("1.23", 123, 0, stubStrategy{name: "scalper"}, t0)
	return trade.CreateOrder(side, ot, t0)
}

func TestOrderTransitions(t *testing.T) {
	o := newTestOrder(t, Back, Limit{Price: 2.02, Size: 10})
	require.Equal(t, StatusPending, o.Status)

	require.NoError(t, o.Executable())
	assert.Equal(t, TradeLive, o.Trade.Status)

	require.NoError(t, o.ExecutionComplete())
	assert.Equal(t, StatusExecutionComplete, o.Status)
	assert.Equal(t, TradeComplete, o.Trade.Status)

	// terminal: nothing moves out of ExecutionComplete
	assert.Error(t, o.Executable())
	assert.Error(t, o.Violation("control", "too big"))
	assert.Error(t, o.Expire())
}

func TestOrderViolationFromPending(t *testing.T) {
	o := newTestOrder(t, Lay, Limit{Price: 3.5, Size: 2})
	require.NoError(t, o.Violation("ORDER_VALIDATION", "price out of range"))
	assert.Equal(t, StatusViolation, o.Status)
	assert.True(t, o.Complete())
	assert.Contains(t, o.ViolationMsg, "price out of range")
}

func TestProcessCurrentExecutionComplete(t *testing.T) {
	o := newTestOrder(t, Back, Limit{Price: 5.6, Size: 4})
	require.NoError(t, o.Executable())

	err := ProcessCurrent(o, resources.CurrentOrder{
		BetID:               "987",
		Status:              resources.OrderStatusExecutionComplete,
		AveragePriceMatched: 5.8,
		SizeMatched:         4,
		SizeRemaining:       0,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusExecutionComplete, o.Status)
	assert.Equal(t, "987", o.BetID)
	assert.Equal(t, 5.8, o.AveragePriceMatched)
	assert.Equal(t, 4.0, o.SizeMatched)
	require.NotNil(t, o.CurrentOrder)
}

func TestProcessCurrentAcknowledgesPending(t *testing.T) {
	o := newTestOrder(t, Back, Limit{Price: 5.6, Size: 4})
	err := ProcessCurrent(o, resources.CurrentOrder{
		Status:        resources.OrderStatusExecutable,
		SizeRemaining: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusExecutable, o.Status)
}

func TestCustomerOrderRefRoundTrip(t *testing.T) {
	o := newTestOrder(t, Back, Limit{Price: 2, Size: 2})
	ref := o.CustomerOrderRef()
	hash, id, ok := ParseCustomerOrderRef(ref)
	require.True(t, ok)
	assert.Equal(t, NameHash("scalper"), hash)
	assert.Equal(t, o.ID, id)
}

func TestNameHash(t *testing.T) {
	h := NameHash("scalper")
	if len(h) != 13 {
		t.Fatalf("unexpected hash length: %q", h)
	}
	if strings.ContainsAny(h, "IGHJKLMNOPQRSTUVWXYZ") {
		t.Fatalf("hash must not collide with ref separator: %q", h)
	}
	if h != NameHash("scalper") {
		t.Fatal("hash must be stable")
	}
}

func TestTradeCreateReplacement(t *testing.T) {
	trade := NewTrade("1.23", 456, 0, stubStrategy{name: "swing"}, t0)
	original := trade.CreateOrder(Lay, Limit{Price: 3.0, Size: 10, PersistenceType: "LAPSE"}, t0)
	original.SizeRemaining = 4

	replacement := trade.CreateReplacement(original, 3.2, t0.Add(time.Second))
	require.Len(t, trade.Orders, 2)
	assert.Equal(t, Lay, replacement.Side)

	limit, ok := replacement.OrderType.(Limit)
	require.True(t, ok)
	assert.Equal(t, 3.2, limit.Price)
	assert.Equal(t, 4.0, limit.Size)
	assert.Equal(t, "LAPSE", limit.PersistenceType)
	assert.NotEqual(t, original.ID, replacement.ID)
}

func TestTradeComplete(t *testing.T) {
	trade := NewTrade("1.23", 456, 0, stubStrategy{name: "swing"}, t0)
	assert.False(t, trade.Complete())

	a := trade.CreateOrder(Back, Limit{Price: 2, Size: 2}, t0)
	b := trade.CreateOrder(Back, Limit{Price: 2.02, Size: 2}, t0)
	require.NoError(t, a.Executable())
	require.NoError(t, a.ExecutionComplete())
	assert.False(t, trade.Complete())

	require.NoError(t, b.Violation("control", "rejected"))
	assert.True(t, trade.Complete())
	assert.Equal(t, TradeComplete, trade.Status)
}

func TestPackageEligibleAt(t *testing.T) {
	pkg := NewPackage(nil, "1.23", PackagePlace, nil, t0)
	pkg.SimulatedDelay = 120 * time.Millisecond
	pkg.BetDelay = 5
	pkg.InPlay = true
	assert.Equal(t, t0.Add(120*time.Millisecond+5*time.Second), pkg.EligibleAt())

	cancel := NewPackage(nil, "1.23", PackageCancel, nil, t0)
	cancel.SimulatedDelay = 170 * time.Millisecond
	cancel.BetDelay = 5
	cancel.InPlay = true
	// bet delay never applies to cancels
	assert.Equal(t, t0.Add(170*time.Millisecond), cancel.EligibleAt())

	assert.Equal(t, 2*time.Second, pkg.Elapsed(t0.Add(2*time.Second)))
}
