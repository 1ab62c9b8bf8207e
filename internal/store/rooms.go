package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// RoomStore holds the rooms and the MCUs they own.
//
// An MCU id is owned by exactly one room. The store keeps an mcu->room index
// that is updated under the same lock as the room list. Inside a Set the
// lock is shared with the sensor and actuator indices.
//
// Actuator State is never kept on the stored rooms: the ActuatorStore on
// map is the only copy of an actuator's on/off value.
type RoomStore struct {
	mu      *sync.RWMutex
	rooms   []domain.Room
	index   map[int]int // room id -> position in rooms
	mcuRoom map[int]int // mcu id -> room id
	bus     *Bus
}

// NewRoomStore creates an empty RoomStore publishing on bus (which may be nil).
func NewRoomStore(bus *Bus) *RoomStore {
	return newRoomStore(bus, new(sync.RWMutex))
}

func newRoomStore(bus *Bus, mu *sync.RWMutex) *RoomStore {
	return &RoomStore{
		mu:      mu,
		index:   make(map[int]int),
		mcuRoom: make(map[int]int),
		bus:     bus,
	}
}

// Add inserts a room. A room whose id already exists replaces the existing
// one in place. MCU locations are derived from the room.
func (s *RoomStore) Add(room domain.Room) {
	room = stripStates(prepareRoom(room))

	s.mu.Lock()
	defer s.mu.Unlock()

	op := OpAdd
	if pos, ok := s.index[room.ID]; ok {
		s.rooms[pos] = room
		op = OpUpdate
	} else {
		s.rooms = append(s.rooms, room)
	}
	s.claimMCUsLocked(room)
	s.reindexLocked()
	s.bus.publish(TopicRooms, op, room.ID)
}

// Update replaces the room with the same id. Returns false (and publishes
// nothing) if the room is absent.
func (s *RoomStore) Update(room domain.Room) bool {
	room = stripStates(prepareRoom(room))

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[room.ID]
	if !ok {
		return false
	}
	s.rooms[pos] = room
	s.claimMCUsLocked(room)
	s.reindexLocked()
	s.bus.publish(TopicRooms, OpUpdate, room.ID)
	return true
}

// RemoveByID removes the room with the given id and its MCUs.
func (s *RoomStore) RemoveByID(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.rooms)
	s.rooms = slices.DeleteFunc(s.rooms, func(r domain.Room) bool { return r.ID == id })
	if len(s.rooms) == before {
		return false
	}
	s.reindexLocked()
	s.bus.publish(TopicRooms, OpRemove, id)
	return true
}

// ReplaceAll swaps the whole room list, as a full resynchronisation does.
func (s *RoomStore) ReplaceAll(rooms []domain.Room) {
	prepared := prepareRooms(rooms)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceAllLocked(prepared)
}

// replaceAllLocked installs rooms already passed through prepareRooms.
func (s *RoomStore) replaceAllLocked(prepared []domain.Room) {
	s.rooms = make([]domain.Room, len(prepared))
	for i, r := range prepared {
		s.rooms[i] = stripStates(r.Clone())
	}
	s.reindexLocked()
	s.bus.publish(TopicRooms, OpReplace, 0)
}

// All returns a copy of every room in insertion order.
func (s *RoomStore) All() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Room, len(s.rooms))
	for i := range s.rooms {
		out[i] = s.rooms[i].Clone()
	}
	return out
}

// Get returns a copy of one room.
func (s *RoomStore) Get(id int) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return domain.Room{}, false
	}
	return s.rooms[pos].Clone(), true
}

// Count returns the number of rooms.
func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// FindMCU returns a copy of an MCU and the id of the room that owns it.
func (s *RoomStore) FindMCU(mcuID int) (domain.MCU, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomID, ok := s.mcuRoom[mcuID]
	if !ok {
		return domain.MCU{}, 0, false
	}
	room := s.rooms[s.index[roomID]]
	i := room.MCUIndex(mcuID)
	if i < 0 {
		return domain.MCU{}, 0, false
	}
	return room.MCUs[i].Clone(), roomID, true
}

// RoomOfMCU returns the id of the room owning an MCU.
func (s *RoomStore) RoomOfMCU(mcuID int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.mcuRoom[mcuID]
	return roomID, ok
}

// UpsertMCU places an MCU in the room named by its office_id.
//
// An MCU already in that room is replaced in place, keeping its position.
// An MCU found in a different room is moved. Otherwise the MCU is appended.
//
// Parameters:
//   - mcu: MCU as received from the backend
//
// Returns:
//   - domain.MCU: the stored MCU, with its derived location
//   - bool: true if the MCU was not known before
//   - error: ErrRoomNotFound if office_id has no local room
func (s *RoomStore) UpsertMCU(mcu domain.MCU) (domain.MCU, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertMCULocked(mcu)
}

func (s *RoomStore) upsertMCULocked(mcu domain.MCU) (domain.MCU, bool, error) {
	pos, ok := s.index[mcu.OfficeID]
	if !ok {
		return domain.MCU{}, false, fmt.Errorf("%w: office %d for mcu %d", ErrRoomNotFound, mcu.OfficeID, mcu.ID)
	}

	mcu = mcu.Clone()
	mcu.Locate(s.rooms[pos])
	for i := range mcu.Actuators {
		mcu.Actuators[i].State = nil
	}

	prevRoom, known := s.mcuRoom[mcu.ID]
	moved := known && prevRoom != mcu.OfficeID
	if moved {
		old := &s.rooms[s.index[prevRoom]]
		if i := old.MCUIndex(mcu.ID); i >= 0 {
			old.MCUs = slices.Delete(old.MCUs, i, i+1)
		}
	}

	room := &s.rooms[pos]
	if i := room.MCUIndex(mcu.ID); i >= 0 {
		room.MCUs[i] = mcu
	} else {
		room.MCUs = append(room.MCUs, mcu)
	}
	s.mcuRoom[mcu.ID] = room.ID

	if moved {
		s.bus.publish(TopicRooms, OpUpdate, prevRoom)
	}
	s.bus.publish(TopicRooms, OpUpdate, mcu.OfficeID)
	return mcu.Clone(), !known, nil
}

// RemoveMCU removes an MCU from its room. Returns false if it was unknown.
func (s *RoomStore) RemoveMCU(mcuID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeMCULocked(mcuID)
}

func (s *RoomStore) removeMCULocked(mcuID int) bool {
	roomID, ok := s.mcuRoom[mcuID]
	if !ok {
		return false
	}
	room := &s.rooms[s.index[roomID]]
	if i := room.MCUIndex(mcuID); i >= 0 {
		room.MCUs = slices.Delete(room.MCUs, i, i+1)
	}
	delete(s.mcuRoom, mcuID)
	s.bus.publish(TopicRooms, OpUpdate, roomID)
	return true
}

// SetMCUStatus changes the status of one MCU.
func (s *RoomStore) SetMCUStatus(mcuID int, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.mcuRoom[mcuID]
	if !ok {
		return false
	}
	room := &s.rooms[s.index[roomID]]
	i := room.MCUIndex(mcuID)
	if i < 0 {
		return false
	}
	if room.MCUs[i].Status != status {
		room.MCUs[i].Status = status
		s.bus.publish(TopicRooms, OpUpdate, roomID)
	}
	return true
}

// UpdateMCUInfo changes the descriptive fields of one MCU in place. Its
// sensors, actuators, status and owning room are left alone.
func (s *RoomStore) UpdateMCUInfo(mcuID int, info domain.MCU) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.mcuRoom[mcuID]
	if !ok {
		return false
	}
	room := &s.rooms[s.index[roomID]]
	i := room.MCUIndex(mcuID)
	if i < 0 {
		return false
	}
	m := &room.MCUs[i]
	if m.Name == info.Name && m.Description == info.Description &&
		m.FWVersion == info.FWVersion && m.Model == info.Model {
		return true
	}
	m.Name = info.Name
	m.Description = info.Description
	m.FWVersion = info.FWVersion
	m.Model = info.Model
	s.bus.publish(TopicRooms, OpUpdate, roomID)
	return true
}

// claimMCUsLocked removes the MCUs of room from any other room.
func (s *RoomStore) claimMCUsLocked(room domain.Room) {
	for _, m := range room.MCUs {
		prev, ok := s.mcuRoom[m.ID]
		if !ok || prev == room.ID {
			continue
		}
		pos, ok := s.index[prev]
		if !ok {
			continue
		}
		other := &s.rooms[pos]
		if i := other.MCUIndex(m.ID); i >= 0 {
			other.MCUs = slices.Delete(other.MCUs, i, i+1)
		}
	}
}

// reindexLocked rebuilds both lookup maps from the room list.
func (s *RoomStore) reindexLocked() {
	clear(s.index)
	clear(s.mcuRoom)
	for i, r := range s.rooms {
		s.index[r.ID] = i
		for _, m := range r.MCUs {
			s.mcuRoom[m.ID] = r.ID
		}
	}
}

// prepareRooms copies a room list for ReplaceAll. Duplicate room ids are
// dropped, and the first room listing an MCU keeps it.
func prepareRooms(rooms []domain.Room) []domain.Room {
	prepared := make([]domain.Room, 0, len(rooms))
	seen := make(map[int]bool, len(rooms))
	owned := make(map[int]bool)
	for _, r := range rooms {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		r = prepareRoom(r)
		r.MCUs = slices.DeleteFunc(r.MCUs, func(m domain.MCU) bool { return owned[m.ID] })
		for _, m := range r.MCUs {
			owned[m.ID] = true
		}
		prepared = append(prepared, r)
	}
	return prepared
}

// stripStates clears actuator State on a room the store owns.
func stripStates(room domain.Room) domain.Room {
	for i := range room.MCUs {
		for j := range room.MCUs[i].Actuators {
			room.MCUs[i].Actuators[j].State = nil
		}
	}
	return room
}

// prepareRoom copies a room, drops duplicate MCU ids and derives locations.
func prepareRoom(room domain.Room) domain.Room {
	room = room.Clone()
	seen := make(map[int]bool, len(room.MCUs))
	mcus := room.MCUs[:0]
	for _, m := range room.MCUs {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		m.Locate(room)
		mcus = append(mcus, m)
	}
	room.MCUs = mcus
	return room
}
