package eventbus_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dushu/gateway/internal/adapter/proxy"
	"github.com/dushu/gateway/internal/core/ports"
	"github.com/dushu/gateway/pkg/eventbus"
)

func sampleEvent(status int, success bool) proxy.DispatchEvent {
	return proxy.DispatchEvent{
		RequestID:  "req-1",
		Service:    "svc",
		Endpoint:   "http://10.0.0.1:8080",
		StatusCode: status,
		Success:    success,
		Duration:   5 * time.Millisecond,
		At:         time.Now(),
	}
}

func TestEventBus_BasicPubSub(t *testing.T) {
	bus := eventbus.New[proxy.DispatchEvent]()
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, cleanup := bus.Subscribe(ctx)
	defer cleanup()

	event := sampleEvent(200, true)
	if delivered := bus.Publish(event); delivered != 1 {
		t.Errorf("expected 1 delivery, got %d", delivered)
	}

	select {
	case received := <-events:
		if received.RequestID != event.RequestID || received.StatusCode != event.StatusCode {
			t.Errorf("event mismatch: expected %+v, got %+v", event, received)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribersEachReceiveTheDispatch(t *testing.T) {
	bus := eventbus.New[proxy.DispatchEvent]()
	defer bus.Shutdown()

	ctx := context.Background()
	const numSubscribers = 5
	var channels []<-chan proxy.DispatchEvent
	var cleanups []func()

	for i := 0; i < numSubscribers; i++ {
		ch, cleanup := bus.Subscribe(ctx)
		channels = append(channels, ch)
		cleanups = append(cleanups, cleanup)
	}
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	event := sampleEvent(500, false)
	if delivered := bus.Publish(event); delivered != numSubscribers {
		t.Errorf("expected %d deliveries, got %d", numSubscribers, delivered)
	}

	for i, ch := range channels {
		select {
		case received := <-ch:
			if received.StatusCode != event.StatusCode {
				t.Errorf("subscriber %d: expected status %d, got %d", i, event.StatusCode, received.StatusCode)
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestEventBus_UnsubscribesOnContextCancellation(t *testing.T) {
	bus := eventbus.New[proxy.DispatchEvent]()
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	events, cleanup := bus.Subscribe(ctx)
	defer cleanup()

	cancel()
	time.Sleep(50 * time.Millisecond)

	bus.Publish(sampleEvent(200, true))

	select {
	case event, ok := <-events:
		if ok {
			t.Errorf("should not receive events after context cancellation, got: %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBus_DropsEventsPastBufferAndRecordsStats(t *testing.T) {
	bus := eventbus.NewWithConfig[proxy.DispatchEvent](eventbus.EventBusConfig{
		BufferSize:    2,
		CleanupPeriod: time.Hour,
	})
	defer bus.Shutdown()

	events, cleanup := bus.Subscribe(context.Background())
	defer cleanup()

	for i := 0; i < 2; i++ {
		if delivered := bus.Publish(sampleEvent(200, true)); delivered != 1 {
			t.Errorf("event %d: expected 1 delivery, got %d", i, delivered)
		}
	}

	if delivered := bus.Publish(sampleEvent(200, true)); delivered != 0 {
		t.Errorf("expected 0 deliveries once the buffer is full, got %d", delivered)
	}

	if stats := bus.Stats(); stats.TotalDropped == 0 {
		t.Error("expected at least one dropped event to be recorded")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-events:
		case <-time.After(time.Second):
			t.Errorf("timeout draining buffered event %d", i)
		}
	}
}

func TestEventBus_PublishAsyncDeliversThroughWorkerPool(t *testing.T) {
	bus := eventbus.New[proxy.DispatchEvent]()
	defer bus.Shutdown()

	events, cleanup := bus.Subscribe(context.Background())
	defer cleanup()

	for i := 0; i < 5; i++ {
		bus.PublishAsync(sampleEvent(200+i, true))
	}

	received := 0
	for i := 0; i < 5; i++ {
		select {
		case <-events:
			received++
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for async event %d", i)
		}
	}

	if received != 5 {
		t.Errorf("expected 5 async events, got %d", received)
	}
}

func TestEventBus_ConcurrentPublishReachesEverySubscriber(t *testing.T) {
	bus := eventbus.New[proxy.DispatchEvent]()
	defer bus.Shutdown()

	const numPublishers = 10
	const numSubscribers = 5
	const eventsPerPublisher = 50

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receivedCounts := make([]int64, numSubscribers)
	var subscriberWg sync.WaitGroup
	var cleanups []func()

	for i := 0; i < numSubscribers; i++ {
		ch, cleanup := bus.Subscribe(ctx)
		cleanups = append(cleanups, cleanup)

		idx := i
		subscriberWg.Add(1)
		go func() {
			defer subscriberWg.Done()
			for {
				select {
				case <-ch:
					atomic.AddInt64(&receivedCounts[idx], 1)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < numPublishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerPublisher; j++ {
				bus.Publish(sampleEvent(200, true))
			}
		}()
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	cancel()
	subscriberWg.Wait()

	for i, count := range receivedCounts {
		if count == 0 {
			t.Errorf("subscriber %d received no events", i)
		}
	}
}

func TestEventBus_ShutdownStopsDeliveryAndRejectsNewSubscribers(t *testing.T) {
	bus := eventbus.New[proxy.DispatchEvent]()

	events, cleanup := bus.Subscribe(context.Background())
	defer cleanup()

	bus.Shutdown()

	if stats := bus.Stats(); !stats.IsShutdown {
		t.Error("bus should report as shutdown")
	}

	if delivered := bus.Publish(sampleEvent(200, true)); delivered != 0 {
		t.Errorf("expected 0 deliveries after shutdown, got %d", delivered)
	}

	newEvents, newCleanup := bus.Subscribe(context.Background())
	defer newCleanup()

	select {
	case _, ok := <-newEvents:
		if ok {
			t.Error("channel from a shutdown bus should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected a closed channel immediately")
	}

	select {
	case event := <-events:
		t.Errorf("should not receive events after shutdown, got: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBus_CleanupRemovesInactiveSubscribers(t *testing.T) {
	bus := eventbus.NewWithConfig[proxy.DispatchEvent](eventbus.EventBusConfig{
		BufferSize:      10,
		CleanupPeriod:   50 * time.Millisecond,
		InactiveTimeout: 100 * time.Millisecond,
	})
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	_, cleanup := bus.Subscribe(ctx)
	defer cleanup()

	if stats := bus.Stats(); stats.TotalSubscribers != 1 {
		t.Errorf("expected 1 subscriber, got %d", stats.TotalSubscribers)
	}

	cancel()
	time.Sleep(200 * time.Millisecond)

	if stats := bus.Stats(); stats.TotalSubscribers != 0 {
		t.Errorf("expected the cancelled subscriber to be cleaned up, got %d", stats.TotalSubscribers)
	}
}

// TestEventBus_TypeSafety confirms the bus is parameterised independently
// per instantiation: a breaker-snapshot bus and a dispatch-event bus never
// cross-deliver even though both are built from the same generic type.
func TestEventBus_TypeSafety(t *testing.T) {
	snapshotBus := eventbus.New[ports.BreakerSnapshot]()
	dispatchBus := eventbus.New[proxy.DispatchEvent]()
	defer snapshotBus.Shutdown()
	defer dispatchBus.Shutdown()

	ctx := context.Background()
	snapshots, snapshotCleanup := snapshotBus.Subscribe(ctx)
	dispatches, dispatchCleanup := dispatchBus.Subscribe(ctx)
	defer snapshotCleanup()
	defer dispatchCleanup()

	snapshotBus.Publish(ports.BreakerSnapshot{State: "OPEN", FailureCount: 5})
	dispatchBus.Publish(sampleEvent(503, false))

	select {
	case received := <-snapshots:
		if received.State != "OPEN" {
			t.Errorf("expected state OPEN, got %s", received.State)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for breaker snapshot")
	}

	select {
	case received := <-dispatches:
		if received.StatusCode != 503 {
			t.Errorf("expected status 503, got %d", received.StatusCode)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for dispatch event")
	}
}
