package domain

import (
	"fmt"
	"strings"
)

// Status values reported by the backend for an MCU. Comparisons are
// case-insensitive because the backend sends "online" while older clients
// wrote "Online".
const (
	StatusOnline   = "online"
	StatusOffline  = "offline"
	StatusDisabled = "disabled"
)

// Room is one office with the MCUs installed in it.
//
// The JSON shape matches GET /office/?return_components=true, where the MCU
// list is carried under "devices".
type Room struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Building    string `json:"building"`
	Room        string `json:"room"`
	Description string `json:"description"`
	MCUs        []MCU  `json:"devices"`
}

// Clone returns a copy of the room that shares no slices with r.
func (r Room) Clone() Room {
	cpy := r
	if r.MCUs != nil {
		cpy.MCUs = make([]MCU, len(r.MCUs))
		for i := range r.MCUs {
			cpy.MCUs[i] = r.MCUs[i].Clone()
		}
	}
	return cpy
}

// MCUIndex returns the position of the MCU with the given id, or -1.
func (r Room) MCUIndex(id int) int {
	for i := range r.MCUs {
		if r.MCUs[i].ID == id {
			return i
		}
	}
	return -1
}

// MCU is a microcontroller unit with its sensors and actuators.
type MCU struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	MACAddr      string     `json:"mac_addr"`
	FWVersion    string     `json:"fw_version"`
	Model        string     `json:"model,omitempty"`
	Status       string     `json:"status"`
	OfficeID     int        `json:"office_id"`
	GatewayID    int        `json:"gateway_id"`
	RegisteredAt string     `json:"registered_at,omitempty"`
	LastSeenAt   string     `json:"last_seen_at,omitempty"`
	Sensors      []Sensor   `json:"sensors"`
	Actuators    []Actuator `json:"actuators"`
}

// Clone returns a copy of the MCU that shares no slices with m.
func (m MCU) Clone() MCU {
	cpy := m
	if m.Sensors != nil {
		cpy.Sensors = append([]Sensor(nil), m.Sensors...)
	}
	if m.Actuators != nil {
		cpy.Actuators = make([]Actuator, len(m.Actuators))
		for i := range m.Actuators {
			cpy.Actuators[i] = m.Actuators[i].Clone()
		}
	}
	return cpy
}

// IsOnline reports whether the backend considers the MCU online.
func (m MCU) IsOnline() bool {
	return strings.EqualFold(m.Status, StatusOnline)
}

// Locate sets the derived location label from the owning room.
func (m *MCU) Locate(room Room) {
	m.Location = Location(m.OfficeID, room.Building, room.Room)
}

// Location builds the "O{office}-{building}-{room}" label shown for an MCU.
func Location(officeID int, building, room string) string {
	return fmt.Sprintf("O%d-%s-%s", officeID, building, room)
}

// Sensor is one sensing channel of an MCU.
type Sensor struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Unit     string `json:"unit,omitempty"`
	DeviceID int    `json:"device_id"`
	Status   string `json:"status,omitempty"`
}

// Actuator modes accepted by the backend's setMode method.
const (
	ModeManual   = "manual"
	ModeAuto     = "auto"
	ModeSchedule = "schedule"
	ModeRemote   = "remote"
)

// Actuator is one controllable output of an MCU.
type Actuator struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	DeviceID int    `json:"device_id"`
	Mode     string `json:"mode,omitempty"`
	Status   string `json:"status,omitempty"`

	// State is the on/off value when the backend reports one. A nil State
	// leaves the locally known value in place.
	State *bool `json:"state,omitempty"`
}

// Clone returns a copy of the actuator that shares no pointers with a.
func (a Actuator) Clone() Actuator {
	cpy := a
	if a.State != nil {
		v := *a.State
		cpy.State = &v
	}
	return cpy
}

// NormalizeMode maps the accepted spellings of an actuator mode to its
// canonical value. The second result is false for unknown modes.
func NormalizeMode(mode string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeManual:
		return ModeManual, true
	case ModeAuto:
		return ModeAuto, true
	case ModeSchedule, "scheduled":
		return ModeSchedule, true
	case ModeRemote:
		return ModeRemote, true
	default:
		return "", false
	}
}
