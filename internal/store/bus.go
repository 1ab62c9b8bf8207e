package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic names the store an event came from.
type Topic string

// Topics published by the stores.
const (
	TopicRooms         Topic = "rooms"
	TopicSensors       Topic = "sensors"
	TopicActuators     Topic = "actuators"
	TopicNotifications Topic = "notifications"
)

// Op is the kind of mutation an event describes.
type Op string

// Mutation kinds.
const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
	OpClear   Op = "clear"
)

// Event describes one effective store mutation.
//
// ID is the affected entity id; it is zero for bulk operations.
type Event struct {
	Seq   uint64    `json:"seq"`
	Topic Topic     `json:"topic"`
	Op    Op        `json:"op"`
	ID    int       `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Listener receives store events on the Bus dispatcher goroutine.
// Listeners must not block for long: they delay every later event.
type Listener func(Event)

type subscription struct {
	id     string
	topics []Topic
	fn     Listener
}

func (s subscription) wants(t Topic) bool {
	return len(s.topics) == 0 || slices.Contains(s.topics, t)
}

// queued is either an event or a flush barrier.
type queued struct {
	event   Event
	barrier chan struct{}
}

// Bus fans store events out to listeners from one dispatcher goroutine.
//
// Publish never blocks and never drops: events are appended to an unbounded
// FIFO that the dispatcher drains in order.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Bus struct {
	logger Logger

	mu    sync.Mutex
	queue []queued
	seq   uint64

	subMu sync.RWMutex
	subs  []subscription

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewBus creates a Bus. Call Start to begin delivering events.
func NewBus(logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine. Calling it more than once has no effect.
func (b *Bus) Start() {
	b.startOnce.Do(func() {
		go b.run()
	})
}

// Close delivers everything already published, then stops the dispatcher.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.Start()
		close(b.done)
	})
	<-b.stopped
}

// Subscribe registers fn for the given topics, or for every topic when none
// are given. The returned id is passed to Unsubscribe.
func (b *Bus) Subscribe(fn Listener, topics ...Topic) string {
	id := uuid.NewString()
	b.subMu.Lock()
	b.subs = append(b.subs, subscription{id: id, topics: topics, fn: fn})
	b.subMu.Unlock()
	return id
}

// Unsubscribe removes a listener. Events already being delivered may still
// reach it. Returns false if the id is unknown.
func (b *Bus) Unsubscribe(id string) bool {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = slices.Delete(b.subs, i, i+1)
			return true
		}
	}
	return false
}

// ListenerCount returns the number of registered listeners.
func (b *Bus) ListenerCount() int {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	return len(b.subs)
}

// Publish enqueues an event. Seq and At are assigned here.
func (b *Bus) Publish(topic Topic, op Op, id int) {
	b.mu.Lock()
	b.seq++
	b.queue = append(b.queue, queued{event: Event{
		Seq:   b.seq,
		Topic: topic,
		Op:    op,
		ID:    id,
		At:    time.Now().UTC(),
	}})
	b.mu.Unlock()
	b.signal()
}

// Flush waits until every event published before the call has been
// delivered to all listeners.
func (b *Bus) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	b.mu.Lock()
	b.queue = append(b.queue, queued{barrier: barrier})
	b.mu.Unlock()
	b.signal()

	select {
	case <-barrier:
		return nil
	case <-b.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bus) run() {
	defer close(b.stopped)
	for {
		select {
		case <-b.wake:
			b.drain()
		case <-b.done:
			b.drain()
			return
		}
	}
}

// drain delivers queued items until the queue is empty.
func (b *Bus) drain() {
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, item := range batch {
			if item.barrier != nil {
				close(item.barrier)
				continue
			}
			b.deliver(item.event)
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.subMu.RLock()
	subs := slices.Clone(b.subs)
	b.subMu.RUnlock()

	for _, s := range subs {
		if s.wants(ev.Topic) {
			b.invoke(s, ev)
		}
	}
}

func (b *Bus) invoke(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("store listener panicked",
				"listener_id", s.id,
				"topic", ev.Topic,
				"panic", r,
			)
		}
	}()
	s.fn(ev)
}

// publish is a nil-safe helper for stores constructed without a Bus.
func (b *Bus) publish(topic Topic, op Op, id int) {
	if b == nil {
		return
	}
	b.Publish(topic, op, id)
}
