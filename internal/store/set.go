package store

import (
	"sync"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// Set bundles the four stores and their shared Bus.
//
// One Set is constructed at startup and handed to every consumer; there is
// no package-level instance.
//
// Rooms, Sensors and Actuators share one lock. The Set methods apply a
// backend payload to all three under that lock, so a reader never sees an
// MCU in its room without its sensors and actuators.
type Set struct {
	Bus           *Bus
	Rooms         *RoomStore
	Sensors       *SensorStore
	Actuators     *ActuatorStore
	Notifications *NotificationStore

	mu *sync.RWMutex
}

// New creates a Set with empty stores. Call Start before relying on listeners.
func New(logger Logger) *Set {
	bus := NewBus(logger)
	mu := new(sync.RWMutex)
	return &Set{
		Bus:           bus,
		Rooms:         newRoomStore(bus, mu),
		Sensors:       newSensorStore(bus, mu),
		Actuators:     newActuatorStore(bus, mu),
		Notifications: NewNotificationStore(bus),
		mu:            mu,
	}
}

// Start begins listener delivery.
func (s *Set) Start() {
	s.Bus.Start()
}

// Close delivers pending events and stops listener delivery.
func (s *Set) Close() {
	s.Bus.Close()
}

// IngestMCU places an MCU received from the backend into its room and
// refreshes the sensor and actuator indices for it.
//
// Returns:
//   - domain.MCU: the stored MCU with its derived location
//   - bool: true if the MCU id was not known before
//   - error: ErrRoomNotFound if the MCU's office_id has no local room
func (s *Set) IngestMCU(mcu domain.MCU) (domain.MCU, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, created, err := s.Rooms.upsertMCULocked(mcu)
	if err != nil {
		return domain.MCU{}, false, err
	}
	s.Sensors.replaceForMCULocked(mcu.ID, mcu.Sensors)
	s.Actuators.placeMCULocked(mcu.ID, mcu.OfficeID, mcu.Actuators)
	return stored, created, nil
}

// RemoveMCU removes an MCU with its sensors and actuators.
func (s *Set) RemoveMCU(mcuID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Rooms.removeMCULocked(mcuID) {
		return false
	}
	s.Sensors.replaceForMCULocked(mcuID, nil)
	s.Actuators.removeForMCULocked(mcuID)
	return true
}

// LoadRooms replaces all room, sensor and actuator state with a full
// snapshot from the backend.
func (s *Set) LoadRooms(rooms []domain.Room) {
	prepared := prepareRooms(rooms)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Rooms.replaceAllLocked(prepared)
	s.Sensors.replaceAllLocked(prepared)
	s.Actuators.replaceAllLocked(prepared)
}

// View runs fn while holding the room, sensor and actuator lock for
// reading. fn sees one consistent state across the three indices and must
// only use the read methods of View.
func (s *Set) View(fn func(v View)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(View{set: s})
}

// View reads the room, sensor and actuator indices inside Set.View.
type View struct {
	set *Set
}

// Rooms returns a copy of every room.
func (v View) Rooms() []domain.Room {
	out := make([]domain.Room, len(v.set.Rooms.rooms))
	for i := range v.set.Rooms.rooms {
		out[i] = v.set.Rooms.rooms[i].Clone()
	}
	return out
}

// Room returns a copy of one room.
func (v View) Room(id int) (domain.Room, bool) {
	pos, ok := v.set.Rooms.index[id]
	if !ok {
		return domain.Room{}, false
	}
	return v.set.Rooms.rooms[pos].Clone(), true
}

// SensorsForMCU returns the sensors owned by one MCU.
func (v View) SensorsForMCU(mcuID int) []domain.Sensor {
	var out []domain.Sensor
	for _, x := range v.set.Sensors.items {
		if x.DeviceID == mcuID {
			out = append(out, x)
		}
	}
	return out
}

// DevicesForRoom returns the projection of the actuators in one room.
func (v View) DevicesForRoom(roomID int) []domain.Device {
	a := v.set.Actuators
	var out []domain.Device
	for _, x := range a.items {
		if a.mcuRoom[x.DeviceID] == roomID {
			out = append(out, a.projectLocked(x))
		}
	}
	return out
}
