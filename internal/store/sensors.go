package store

import (
	"slices"
	"sync"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// SensorStore is the flattened index of every sensor of every MCU.
type SensorStore struct {
	mu    *sync.RWMutex
	items []domain.Sensor
	bus   *Bus
}

// NewSensorStore creates an empty SensorStore publishing on bus (which may be nil).
func NewSensorStore(bus *Bus) *SensorStore {
	return newSensorStore(bus, new(sync.RWMutex))
}

func newSensorStore(bus *Bus, mu *sync.RWMutex) *SensorStore {
	return &SensorStore{mu: mu, bus: bus}
}

// Add appends a sensor, or replaces the sensor with the same id in place.
func (s *SensorStore) Add(sensor domain.Sensor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := OpAdd
	if i := s.indexLocked(sensor.ID); i >= 0 {
		s.items[i] = sensor
		op = OpUpdate
	} else {
		s.items = append(s.items, sensor)
	}
	s.bus.publish(TopicSensors, op, sensor.ID)
}

// Update replaces the sensor with the same id. No-op if absent.
func (s *SensorStore) Update(sensor domain.Sensor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(sensor.ID)
	if i < 0 {
		return false
	}
	s.items[i] = sensor
	s.bus.publish(TopicSensors, OpUpdate, sensor.ID)
	return true
}

// RemoveByID removes every sensor with the id. No-op if none match.
func (s *SensorStore) RemoveByID(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(x domain.Sensor) bool { return x.ID == id })
	if len(s.items) == before {
		return false
	}
	s.bus.publish(TopicSensors, OpRemove, id)
	return true
}

// ReplaceForMCU swaps the sensors owned by one MCU in a single step.
func (s *SensorStore) ReplaceForMCU(mcuID int, sensors []domain.Sensor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceForMCULocked(mcuID, sensors)
}

func (s *SensorStore) replaceForMCULocked(mcuID int, sensors []domain.Sensor) {
	s.items = slices.DeleteFunc(s.items, func(x domain.Sensor) bool { return x.DeviceID == mcuID })
	for _, sensor := range sensors {
		sensor.DeviceID = mcuID
		if i := s.indexLocked(sensor.ID); i >= 0 {
			s.items[i] = sensor
			continue
		}
		s.items = append(s.items, sensor)
	}
	s.bus.publish(TopicSensors, OpReplace, mcuID)
}

// RemoveForMCU drops every sensor owned by an MCU.
func (s *SensorStore) RemoveForMCU(mcuID int) {
	s.ReplaceForMCU(mcuID, nil)
}

// replaceAllLocked rebuilds the index from a full room list.
func (s *SensorStore) replaceAllLocked(rooms []domain.Room) {
	var items []domain.Sensor
	for _, r := range rooms {
		for _, m := range r.MCUs {
			for _, sensor := range m.Sensors {
				sensor.DeviceID = m.ID
				if i := slices.IndexFunc(items, func(x domain.Sensor) bool { return x.ID == sensor.ID }); i >= 0 {
					items[i] = sensor
					continue
				}
				items = append(items, sensor)
			}
		}
	}
	s.items = items
	s.bus.publish(TopicSensors, OpReplace, 0)
}

// Clear removes every sensor.
func (s *SensorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.bus.publish(TopicSensors, OpClear, 0)
}

// Get returns one sensor.
func (s *SensorStore) Get(id int) (domain.Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return domain.Sensor{}, false
}

// All returns a copy of every sensor.
func (s *SensorStore) All() []domain.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// ForMCU returns the sensors owned by one MCU.
func (s *SensorStore) ForMCU(mcuID int) []domain.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Sensor
	for _, x := range s.items {
		if x.DeviceID == mcuID {
			out = append(out, x)
		}
	}
	return out
}

// Count returns the number of sensors.
func (s *SensorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *SensorStore) indexLocked(id int) int {
	return slices.IndexFunc(s.items, func(x domain.Sensor) bool { return x.ID == id })
}
