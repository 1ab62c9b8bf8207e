package domain

import "strings"

// DeviceType is the control class of an actuator, derived from its raw type.
type DeviceType string //nolint:revive // domain.DeviceType reads better than domain.Type at call sites

// Control classes understood by the automation engine and the dispatcher.
const (
	DeviceTypeFan          DeviceType = "fan"
	DeviceTypeAC           DeviceType = "ac"
	DeviceTypeCeilingLight DeviceType = "ceiling_light"
	DeviceTypeBulb         DeviceType = "bulb"
	DeviceTypePurifier     DeviceType = "purifier"
)

// AllDeviceTypes lists every DeviceType in a stable order.
var AllDeviceTypes = []DeviceType{
	DeviceTypeFan,
	DeviceTypeAC,
	DeviceTypeCeilingLight,
	DeviceTypeBulb,
	DeviceTypePurifier,
}

// ParseDeviceType returns the DeviceType named by s (its own string form).
func ParseDeviceType(s string) (DeviceType, bool) {
	for _, t := range AllDeviceTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// DeviceTypeOf maps a raw actuator type reported by firmware to its control
// class. Unknown types are treated as bulbs.
func DeviceTypeOf(actuatorType string) DeviceType {
	switch strings.ToLower(strings.TrimSpace(actuatorType)) {
	case "fan":
		return DeviceTypeFan
	case "led4rgb", "led", "light", "indicator":
		return DeviceTypeBulb
	case "lighting":
		return DeviceTypeCeilingLight
	case "ac", "air_conditioner":
		return DeviceTypeAC
	case "purifier":
		return DeviceTypePurifier
	default:
		return DeviceTypeBulb
	}
}

// IsLighting reports whether commands for t are sent as setLighting.
func (t DeviceType) IsLighting() bool {
	return t == DeviceTypeBulb || t == DeviceTypeCeilingLight
}

// Device is the control projection of an Actuator.
//
// It is rebuilt from the actuator list whenever that list changes and is
// never stored on its own.
type Device struct {
	ActuatorID int        `json:"actuator_id"`
	MCUID      int        `json:"mcu_id"`
	RoomID     int        `json:"room_id"`
	Name       string     `json:"name"`
	Type       DeviceType `json:"type"`
	Mode       string     `json:"mode,omitempty"`
	IsOn       bool       `json:"is_on"`
}

// Project builds the Device for an actuator.
func Project(a Actuator, roomID int, isOn bool) Device {
	return Device{
		ActuatorID: a.ID,
		MCUID:      a.DeviceID,
		RoomID:     roomID,
		Name:       a.Name,
		Type:       DeviceTypeOf(a.Type),
		Mode:       a.Mode,
		IsOn:       isOn,
	}
}
