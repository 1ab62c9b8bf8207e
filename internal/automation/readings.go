package automation

import (
	"maps"
	"slices"
	"sync"
)

// Readings is the latest value of each sensor channel for one room.
//
// A channel that never reported is absent, and devices driven by it are
// skipped. Motion that never reported counts as no motion.
// Readings is a value type: With and WithMotion return modified copies.
type Readings struct {
	values map[SensorType]float64
	motion *bool
}

// NewReadings returns an empty snapshot.
func NewReadings() Readings {
	return Readings{}
}

// With returns a copy with one channel set.
func (r Readings) With(t SensorType, v float64) Readings {
	values := maps.Clone(r.values)
	if values == nil {
		values = make(map[SensorType]float64, 1)
	}
	values[t] = v
	return Readings{values: values, motion: r.motion}
}

// WithMotion returns a copy with the motion channel set.
func (r Readings) WithMotion(detected bool) Readings {
	return Readings{values: r.values, motion: &detected}
}

// Value returns one channel.
func (r Readings) Value(t SensorType) (float64, bool) {
	v, ok := r.values[t]
	return v, ok
}

// Motion returns the motion channel, false when it never reported.
func (r Readings) Motion() bool {
	return r.motion != nil && *r.motion
}

// MotionKnown reports whether the motion channel has reported.
func (r Readings) MotionKnown() bool {
	return r.motion != nil
}

// Map returns the snapshot as a plain map, motion as 0/1.
func (r Readings) Map() map[string]float64 {
	out := make(map[string]float64, len(r.values)+1)
	for k, v := range r.values {
		out[string(k)] = v
	}
	if r.motion != nil {
		out["motion"] = 0
		if *r.motion {
			out["motion"] = 1
		}
	}
	return out
}

// ReadingsBoard holds the latest Readings per room.
//
// Thread Safety: all methods are safe for concurrent use.
type ReadingsBoard struct {
	mu    sync.RWMutex
	rooms map[int]Readings
}

// NewReadingsBoard creates an empty board.
func NewReadingsBoard() *ReadingsBoard {
	return &ReadingsBoard{rooms: make(map[int]Readings)}
}

// Set records one channel for a room.
func (b *ReadingsBoard) Set(roomID int, t SensorType, v float64) {
	b.mu.Lock()
	b.rooms[roomID] = b.rooms[roomID].With(t, v)
	b.mu.Unlock()
}

// SetMotion records the motion channel for a room.
func (b *ReadingsBoard) SetMotion(roomID int, detected bool) {
	b.mu.Lock()
	b.rooms[roomID] = b.rooms[roomID].WithMotion(detected)
	b.mu.Unlock()
}

// Apply records several channels and, when motion is non-nil, the motion
// channel for a room in one step. Readers see either none or all of them.
func (b *ReadingsBoard) Apply(roomID int, values map[SensorType]float64, motion *bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.rooms[roomID]
	if len(values) > 0 {
		merged := maps.Clone(r.values)
		if merged == nil {
			merged = make(map[SensorType]float64, len(values))
		}
		maps.Copy(merged, values)
		r.values = merged
	}
	if motion != nil {
		detected := *motion
		r.motion = &detected
	}
	b.rooms[roomID] = r
}

// Snapshot returns the readings of one room.
func (b *ReadingsBoard) Snapshot(roomID int) Readings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rooms[roomID]
}

// Rooms returns the ids of rooms with readings, sorted.
func (b *ReadingsBoard) Rooms() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.rooms))
}
