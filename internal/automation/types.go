package automation

import (
	"fmt"
	"maps"
	"strings"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// Mode selects how the controller treats devices.
type Mode string

// Automation modes.
const (
	ModeManual   Mode = "manual"
	ModeAuto     Mode = "auto"
	ModeDisabled Mode = "disabled"
)

// ParseMode converts a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual:
		return ModeManual, nil
	case ModeAuto:
		return ModeAuto, nil
	case ModeDisabled:
		return ModeDisabled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// SensorType is a sensor channel a threshold compares against.
type SensorType string

// Sensor channels.
const (
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorLight       SensorType = "light"
	SensorPM25        SensorType = "pm2.5"
)

// risesToActivate reports whether a high reading switches the device on.
func (t SensorType) risesToActivate() bool {
	return t != SensorLight
}

// Threshold is an on/off pair for one device class.
type Threshold struct {
	On         float64    `json:"on"`
	Off        float64    `json:"off"`
	SensorType SensorType `json:"sensor_type"`
}

// Validate checks that the pair leaves a deadband in the right direction:
// On > Off for rising channels, On < Off for light.
func (t Threshold) Validate() error {
	if t.SensorType.risesToActivate() {
		if t.On <= t.Off {
			return fmt.Errorf("%w: %s needs on > off (on=%v off=%v)", ErrInvalidThreshold, t.SensorType, t.On, t.Off)
		}
		return nil
	}
	if t.On >= t.Off {
		return fmt.Errorf("%w: %s needs on < off (on=%v off=%v)", ErrInvalidThreshold, t.SensorType, t.On, t.Off)
	}
	return nil
}

// Thresholds maps a device class to its threshold.
type Thresholds map[domain.DeviceType]Threshold

// DefaultThresholds returns the built-in table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		domain.DeviceTypeFan:          {On: 28, Off: 26, SensorType: SensorTemperature},
		domain.DeviceTypeAC:           {On: 26, Off: 24, SensorType: SensorTemperature},
		domain.DeviceTypeCeilingLight: {On: 50, Off: 70, SensorType: SensorLight},
		domain.DeviceTypeBulb:         {On: 50, Off: 70, SensorType: SensorLight},
		domain.DeviceTypePurifier:     {On: 75, Off: 50, SensorType: SensorPM25},
	}
}

// Clone returns an independent copy.
func (t Thresholds) Clone() Thresholds {
	return maps.Clone(t)
}

// Override replaces the on/off pair for a device class named by its string
// form, keeping the class's sensor channel.
func (t Thresholds) Override(deviceType string, on, off float64) error {
	dt, ok := domain.ParseDeviceType(deviceType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDeviceType, deviceType)
	}
	th, ok := t[dt]
	if !ok {
		th = DefaultThresholds()[dt]
	}
	th.On, th.Off = on, off
	if err := th.Validate(); err != nil {
		return fmt.Errorf("threshold for %s: %w", dt, err)
	}
	t[dt] = th
	return nil
}

// Transition is one required on/off change.
type Transition struct {
	ActuatorID int               `json:"actuator_id"`
	RoomID     int               `json:"room_id"`
	Name       string            `json:"name"`
	DeviceType domain.DeviceType `json:"device_type"`
	From       bool              `json:"from"`
	To         bool              `json:"to"`
	Reason     string            `json:"reason"`
}

// Message is the user-facing report of the transition.
func (t Transition) Message() string {
	state := "off"
	if t.To {
		state = "on"
	}
	return fmt.Sprintf("[AUTO] %s turned %s", t.Name, state)
}
