package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// eventLog collects events delivered to a listener.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventLog) listen(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventLog) snapshot() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

func flush(t *testing.T, bus *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewBus(nil)
	bus.Start()
	defer bus.Close()

	var log eventLog
	bus.Subscribe(log.listen)

	for i := 1; i <= 100; i++ {
		bus.Publish(TopicNotifications, OpAdd, i)
	}
	flush(t, bus)

	events := log.snapshot()
	if len(events) != 100 {
		t.Fatalf("delivered %d events, want 100", len(events))
	}
	for i, ev := range events {
		if ev.ID != i+1 {
			t.Fatalf("event %d has ID %d, want %d", i, ev.ID, i+1)
		}
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has Seq %d, want %d", i, ev.Seq, i+1)
		}
	}
}

func TestBus_TopicFilter(t *testing.T) {
	bus := NewBus(nil)
	bus.Start()
	defer bus.Close()

	var rooms, all eventLog
	bus.Subscribe(rooms.listen, TopicRooms)
	bus.Subscribe(all.listen)

	bus.Publish(TopicRooms, OpAdd, 1)
	bus.Publish(TopicSensors, OpAdd, 2)
	flush(t, bus)

	if got := len(rooms.snapshot()); got != 1 {
		t.Errorf("rooms listener got %d events, want 1", got)
	}
	if got := len(all.snapshot()); got != 2 {
		t.Errorf("catch-all listener got %d events, want 2", got)
	}
}

func TestBus_PanickingListenerIsolated(t *testing.T) {
	logger := &recordingLogger{}
	bus := NewBus(logger)
	bus.Start()
	defer bus.Close()

	var log eventLog
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(log.listen)

	bus.Publish(TopicNotifications, OpAdd, 1)
	bus.Publish(TopicNotifications, OpAdd, 2)
	flush(t, bus)

	if got := len(log.snapshot()); got != 2 {
		t.Errorf("healthy listener got %d events, want 2", got)
	}
	if got := logger.errorCount(); got != 2 {
		t.Errorf("logged %d panics, want 2", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)
	bus.Start()
	defer bus.Close()

	var log eventLog
	id := bus.Subscribe(log.listen)

	bus.Publish(TopicRooms, OpAdd, 1)
	flush(t, bus)

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false for registered listener")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe() = true")
	}

	bus.Publish(TopicRooms, OpAdd, 2)
	flush(t, bus)

	if got := len(log.snapshot()); got != 1 {
		t.Errorf("got %d events, want 1", got)
	}
	if bus.ListenerCount() != 0 {
		t.Errorf("ListenerCount() = %d, want 0", bus.ListenerCount())
	}
}

func TestBus_CloseDrainsPending(t *testing.T) {
	bus := NewBus(nil)

	var log eventLog
	bus.Subscribe(log.listen)

	// Published before Start: delivered once the dispatcher runs.
	bus.Publish(TopicRooms, OpAdd, 1)
	bus.Publish(TopicRooms, OpAdd, 2)
	bus.Close()

	if got := len(log.snapshot()); got != 2 {
		t.Errorf("got %d events after Close, want 2", got)
	}
}

func TestBus_ListenerRunsOnSingleGoroutine(t *testing.T) {
	bus := NewBus(nil)
	bus.Start()
	defer bus.Close()

	var (
		mu     sync.Mutex
		active int
		maxAct int
	)
	bus.Subscribe(func(Event) {
		mu.Lock()
		active++
		if active > maxAct {
			maxAct = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus.Publish(TopicSensors, OpUpdate, i)
		}(i)
	}
	wg.Wait()
	flush(t, bus)

	if maxAct != 1 {
		t.Errorf("max concurrent listener invocations = %d, want 1", maxAct)
	}
}
