package store

import (
	"slices"
	"sync"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// ActuatorStore is the flattened index of every actuator of every MCU.
//
// Besides the actuators it keeps the on/off value of each one and the room
// of each MCU, which together produce the Device projection. The on/off
// value is a local hint: SetOn records an optimistic change, and a State
// carried by a later server payload overrides it.
type ActuatorStore struct {
	mu      *sync.RWMutex
	items   []domain.Actuator
	on      map[int]bool // actuator id -> on
	mcuRoom map[int]int  // mcu id -> room id
	bus     *Bus
}

// NewActuatorStore creates an empty ActuatorStore publishing on bus (which may be nil).
func NewActuatorStore(bus *Bus) *ActuatorStore {
	return newActuatorStore(bus, new(sync.RWMutex))
}

func newActuatorStore(bus *Bus, mu *sync.RWMutex) *ActuatorStore {
	return &ActuatorStore{
		mu:      mu,
		on:      make(map[int]bool),
		mcuRoom: make(map[int]int),
		bus:     bus,
	}
}

// Add appends an actuator, or replaces the actuator with the same id in place.
func (s *ActuatorStore) Add(a domain.Actuator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a = s.takeStateLocked(a)
	op := OpAdd
	if i := s.indexLocked(a.ID); i >= 0 {
		s.items[i] = a
		op = OpUpdate
	} else {
		s.items = append(s.items, a)
	}
	s.bus.publish(TopicActuators, op, a.ID)
}

// Update replaces the actuator with the same id. No-op if absent.
func (s *ActuatorStore) Update(a domain.Actuator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(a.ID)
	if i < 0 {
		return false
	}
	s.items[i] = s.takeStateLocked(a)
	s.bus.publish(TopicActuators, OpUpdate, a.ID)
	return true
}

// RemoveByID removes every actuator with the id. No-op if none match.
func (s *ActuatorStore) RemoveByID(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(x domain.Actuator) bool { return x.ID == id })
	if len(s.items) == before {
		return false
	}
	delete(s.on, id)
	s.bus.publish(TopicActuators, OpRemove, id)
	return true
}

// ReplaceForMCU swaps the actuators owned by one MCU in a single step and
// records the room the MCU now belongs to. On/off values survive for
// actuators that are still present unless the payload carries a State.
func (s *ActuatorStore) ReplaceForMCU(mcuID, roomID int, actuators []domain.Actuator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeMCULocked(mcuID, roomID, actuators)
}

func (s *ActuatorStore) placeMCULocked(mcuID, roomID int, actuators []domain.Actuator) {
	s.replaceForMCULocked(mcuID, actuators)
	s.mcuRoom[mcuID] = roomID
	s.bus.publish(TopicActuators, OpReplace, mcuID)
}

// RemoveForMCU drops every actuator owned by an MCU.
func (s *ActuatorStore) RemoveForMCU(mcuID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeForMCULocked(mcuID)
}

func (s *ActuatorStore) removeForMCULocked(mcuID int) {
	s.replaceForMCULocked(mcuID, nil)
	delete(s.mcuRoom, mcuID)
	s.bus.publish(TopicActuators, OpReplace, mcuID)
}

// ReplaceAll rebuilds the index from a full room list.
func (s *ActuatorStore) ReplaceAll(rooms []domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceAllLocked(rooms)
}

func (s *ActuatorStore) replaceAllLocked(rooms []domain.Room) {
	prevOn := s.on
	s.items = nil
	s.on = make(map[int]bool)
	clear(s.mcuRoom)
	for _, r := range rooms {
		for _, m := range r.MCUs {
			s.mcuRoom[m.ID] = r.ID
			for _, a := range m.Actuators {
				a.DeviceID = m.ID
				if prevOn[a.ID] {
					s.on[a.ID] = true
				}
				s.items = append(s.items, s.takeStateLocked(a))
			}
		}
	}
	s.bus.publish(TopicActuators, OpReplace, 0)
}

// Clear removes every actuator and every on/off value.
func (s *ActuatorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	clear(s.on)
	clear(s.mcuRoom)
	s.bus.publish(TopicActuators, OpClear, 0)
}

// Get returns one actuator.
func (s *ActuatorStore) Get(id int) (domain.Actuator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return domain.Actuator{}, false
}

// All returns a copy of every actuator.
func (s *ActuatorStore) All() []domain.Actuator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Actuator, len(s.items))
	for i := range s.items {
		out[i] = s.items[i].Clone()
	}
	return out
}

// Count returns the number of actuators.
func (s *ActuatorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SetOn records the on/off value of an actuator.
//
// Returns:
//   - bool: the previous value
//   - error: ErrActuatorNotFound if the id is unknown
func (s *ActuatorStore) SetOn(id int, on bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return false, ErrActuatorNotFound
	}
	prev := s.on[id]
	if prev != on {
		s.setOnLocked(id, on)
		s.bus.publish(TopicActuators, OpUpdate, id)
	}
	return prev, nil
}

// Revert republishes the current value of an actuator without changing it,
// so observers that applied an unconfirmed change re-read the store.
func (s *ActuatorStore) Revert(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return false
	}
	s.bus.publish(TopicActuators, OpUpdate, id)
	return true
}

// IsOn returns the on/off value of an actuator.
func (s *ActuatorStore) IsOn(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.on[id]
}

// SetMode records the mode of an actuator and returns the previous mode.
func (s *ActuatorStore) SetMode(id int, mode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return "", ErrActuatorNotFound
	}
	prev := s.items[i].Mode
	if prev != mode {
		s.items[i].Mode = mode
		s.bus.publish(TopicActuators, OpUpdate, id)
	}
	return prev, nil
}

// Device returns the projection of one actuator.
func (s *ActuatorStore) Device(id int) (domain.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Device{}, false
	}
	return s.projectLocked(s.items[i]), true
}

// Devices returns the projection of every actuator.
func (s *ActuatorStore) Devices() []domain.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Device, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, s.projectLocked(a))
	}
	return out
}

// DevicesForRoom returns the projection of the actuators in one room.
func (s *ActuatorStore) DevicesForRoom(roomID int) []domain.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Device
	for _, a := range s.items {
		if s.mcuRoom[a.DeviceID] == roomID {
			out = append(out, s.projectLocked(a))
		}
	}
	return out
}

// RoomIDs returns the rooms that own at least one actuator.
func (s *ActuatorStore) RoomIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int]bool)
	var out []int
	for _, a := range s.items {
		roomID, ok := s.mcuRoom[a.DeviceID]
		if ok && !seen[roomID] {
			seen[roomID] = true
			out = append(out, roomID)
		}
	}
	slices.Sort(out)
	return out
}

func (s *ActuatorStore) replaceForMCULocked(mcuID int, actuators []domain.Actuator) {
	keep := make(map[int]bool, len(actuators))
	for _, a := range actuators {
		keep[a.ID] = true
	}
	s.items = slices.DeleteFunc(s.items, func(x domain.Actuator) bool {
		if x.DeviceID != mcuID {
			return false
		}
		if !keep[x.ID] {
			delete(s.on, x.ID)
		}
		return true
	})
	for _, a := range actuators {
		a.DeviceID = mcuID
		a = s.takeStateLocked(a)
		if i := s.indexLocked(a.ID); i >= 0 {
			s.items[i] = a
		} else {
			s.items = append(s.items, a)
		}
	}
}

// takeStateLocked records a server-reported State as authoritative and
// returns the actuator without it; the on map is the only copy kept.
func (s *ActuatorStore) takeStateLocked(a domain.Actuator) domain.Actuator {
	if a.State != nil {
		s.setOnLocked(a.ID, *a.State)
		a.State = nil
	}
	return a
}

func (s *ActuatorStore) setOnLocked(id int, on bool) {
	if on {
		s.on[id] = true
	} else {
		delete(s.on, id)
	}
}

func (s *ActuatorStore) projectLocked(a domain.Actuator) domain.Device {
	return domain.Project(a, s.mcuRoom[a.DeviceID], s.on[a.ID])
}

func (s *ActuatorStore) indexLocked(id int) int {
	return slices.IndexFunc(s.items, func(x domain.Actuator) bool { return x.ID == id })
}
