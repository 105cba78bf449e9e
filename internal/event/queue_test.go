package event

import (
	"context"
	"sync"
	"testing"

	"github.com/vincentmele/flumine/internal/resources"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	for _, id := range []string{"1.1", "1.2", "1.3"} {
		if err := q.TryPublish(MarketBookEvent(&resources.MarketBook{MarketID: id})); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	q.Close()

	var got []string
	err := q.Run(context.Background(), func(e Event) error {
		got = append(got, e.MarketBooks[0].MarketID)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 3 || got[0] != "1.1" || got[1] != "1.2" || got[2] != "1.3" {
		t.Fatalf("events out of order: %v", got)
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.TryPublish(TerminationEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.TryPublish(TerminationEvent()); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	if err := q.TryPublish(TerminationEvent()); err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if err := q.Publish(context.Background(), TerminationEvent()); err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueCloseDuringPublish(t *testing.T) {
	q := NewQueue(16)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				// full is fine, closed ends the publisher; neither may panic
				if err := q.TryPublish(TerminationEvent()); err == ErrQueueClosed {
					return
				}
			}
		}()
	}
	q.Close()
	wg.Wait()
}

func TestQueueTryNext(t *testing.T) {
	q := NewQueue(2)
	if _, ok := q.TryNext(); ok {
		t.Fatal("expected empty queue")
	}
	if err := q.TryPublish(CurrentOrdersEvent(&resources.CurrentOrders{})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	e, ok := q.TryNext()
	if !ok || e.Kind != KindCurrentOrders {
		t.Fatalf("unexpected event: %+v ok=%v", e, ok)
	}
}

func TestQueueRunStopsOnHandlerError(t *testing.T) {
	q := NewQueue(2)
	want := ErrQueueClosed // any sentinel will do
	_ = q.TryPublish(TerminationEvent())
	err := q.Run(context.Background(), func(Event) error { return want })
	if err != want {
		t.Fatalf("expected handler error, got %v", err)
	}
}
