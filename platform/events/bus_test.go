package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var calls int
	bus.Subscribe("thing.happened", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "thing.happened"}); err != nil {
		t.Fatalf("publish sync: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublishSyncCombinesHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)

	first := errors.New("first failed")
	second := errors.New("second failed")
	bus.Subscribe("thing.happened", HandlerFunc(func(context.Context, Event) error { return first }))
	bus.Subscribe("thing.happened", HandlerFunc(func(context.Context, Event) error { return second }))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "thing.happened"})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both handler errors, got %v", err)
	}
}

func TestPublishOnlyReachesMatchingSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wrong int
	bus.Subscribe("other.event", HandlerFunc(func(context.Context, Event) error {
		wrong++
		return nil
	}))

	done := make(chan struct{})
	bus.Subscribe("thing.happened", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "thing.happened"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("matching handler never ran")
	}
	if wrong != 0 {
		t.Fatalf("non-matching handler ran %d times", wrong)
	}
}

func TestPublishSurvivesCancelledRequestContext(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var mu sync.Mutex
	var sawCancelled bool
	done := make(chan struct{})
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, _ Event) error {
		mu.Lock()
		sawCancelled = ctx.Err() != nil
		mu.Unlock()
		close(done)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{NewBaseEvent(), "thing.happened"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if sawCancelled {
		t.Fatal("handler context must be detached from the request context")
	}
}
