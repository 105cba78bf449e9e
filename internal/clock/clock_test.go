package clock

import (
	"testing"
	"time"
)

func TestRealNow(t *testing.T) {
	before := time.Now().UTC()
	now := Real{}.Now()
	if now.Before(before.Add(-time.Second)) {
		t.Fatalf("real clock behind wall clock: %v < %v", now, before)
	}
}

func TestSimulatedSetAdvance(t *testing.T) {
	start := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	clk := NewSimulated(start)
	if !clk.Now().Equal(start) {
		t.Fatalf("unexpected start time: %v", clk.Now())
	}

	clk.Advance(90 * time.Second)
	if got := clk.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("advance mismatch: %v", got)
	}

	clk.Set(start)
	if !clk.Now().Equal(start) {
		t.Fatalf("set mismatch: %v", clk.Now())
	}
}
