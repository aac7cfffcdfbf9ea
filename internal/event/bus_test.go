package event

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(RecordsUpdated, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})

	bus.Publish(Event{
		Type: RecordsUpdated,
		Data: map[string]any{"records": 42},
	})

	// Give the goroutine time to process
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}
	if received[0].Data["records"] != 42 {
		t.Errorf("data[records] = %v, want 42", received[0].Data["records"])
	}
	if received[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	count := 0

	for range 3 {
		bus.Subscribe(ImportCompleted, func(_ Event) {
			mu.Lock()
			defer mu.Unlock()
			count++
		})
	}

	bus.Publish(Event{Type: ImportCompleted})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(testLogger(), 16)
	go bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	delivered := false

	bus.Subscribe(SyncCompleted, func(_ Event) {
		panic("handler bug")
	})
	bus.Subscribe(SyncCompleted, func(_ Event) {
		mu.Lock()
		defer mu.Unlock()
		delivered = true
	})

	bus.Publish(Event{Type: SyncCompleted})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !delivered {
		t.Error("a panicking handler must not block other subscribers")
	}
}

func TestStopDrainsBuffer(t *testing.T) {
	bus := NewBus(testLogger(), 16)

	var mu sync.Mutex
	count := 0
	bus.Subscribe(RecordsUpdated, func(_ Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	for range 5 {
		bus.Publish(Event{Type: RecordsUpdated})
	}

	done := make(chan struct{})
	go func() {
		bus.Start()
		close(done)
	}()
	bus.Stop()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("count = %d, want all 5 buffered events delivered", count)
	}
}
