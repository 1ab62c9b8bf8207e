package automation

import (
	"fmt"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// Evaluate returns the transitions the devices need for the given readings.
//
// It has no side effects. A device whose class has no threshold, or whose
// sensor channel has no reading, is skipped. A device already in the
// target state yields nothing, so evaluating again after applying the
// result yields nothing.
//
// Parameters:
//   - devices: current device projections (IsOn is the current state)
//   - readings: latest readings of the room the devices belong to
//   - thresholds: on/off pairs per device class
//
// Returns:
//   - []Transition: required changes, in device order
func Evaluate(devices []domain.Device, readings Readings, thresholds Thresholds) []Transition {
	var out []Transition
	for _, d := range devices {
		th, ok := thresholds[d.Type]
		if !ok {
			continue
		}
		value, ok := readings.Value(th.SensorType)
		if !ok {
			continue
		}
		if to, reason, change := decide(d, th, value, readings.Motion()); change {
			out = append(out, transition(d, to, reason))
		}
	}
	return out
}

// decide applies the class rule for one device.
func decide(d domain.Device, th Threshold, value float64, motion bool) (to bool, reason string, change bool) {
	switch {
	case th.SensorType == SensorLight && motionGated(d.Type):
		if !d.IsOn && value < th.On && motion {
			return true, fmt.Sprintf("light %.1f < %.1f with motion", value, th.On), true
		}
		if d.IsOn && value >= th.Off {
			return false, fmt.Sprintf("light %.1f >= %.1f", value, th.Off), true
		}
		if d.IsOn && !motion {
			return false, "no motion", true
		}

	case th.SensorType == SensorLight:
		if !d.IsOn && value < th.On {
			return true, fmt.Sprintf("light %.1f < %.1f", value, th.On), true
		}
		if d.IsOn && value >= th.Off {
			return false, fmt.Sprintf("light %.1f >= %.1f", value, th.Off), true
		}

	case th.SensorType == SensorPM25:
		if !d.IsOn && value > th.On {
			return true, fmt.Sprintf("pm2.5 %.1f > %.1f", value, th.On), true
		}
		if d.IsOn && value < th.Off {
			return false, fmt.Sprintf("pm2.5 %.1f < %.1f", value, th.Off), true
		}

	default:
		if !d.IsOn && value >= th.On {
			return true, fmt.Sprintf("%s %.1f >= %.1f", th.SensorType, value, th.On), true
		}
		if d.IsOn && value < th.Off {
			return false, fmt.Sprintf("%s %.1f < %.1f", th.SensorType, value, th.Off), true
		}
	}
	return false, "", false
}

// motionGated reports whether the class also needs motion to switch on.
func motionGated(t domain.DeviceType) bool {
	return t == domain.DeviceTypeBulb
}

// Plan gates Evaluate on the mode.
//
// MANUAL returns nothing. AUTO returns Evaluate. DISABLED returns an off
// transition for every device that is on, regardless of thresholds.
func Plan(mode Mode, devices []domain.Device, readings Readings, thresholds Thresholds) []Transition {
	switch mode {
	case ModeAuto:
		return Evaluate(devices, readings, thresholds)
	case ModeDisabled:
		return ForceOff(devices)
	default:
		return nil
	}
}

// ForceOff returns an off transition for every device that is on.
func ForceOff(devices []domain.Device) []Transition {
	var out []Transition
	for _, d := range devices {
		if d.IsOn {
			out = append(out, transition(d, false, "automation disabled"))
		}
	}
	return out
}

// Apply returns a copy of devices with the transitions applied.
func Apply(devices []domain.Device, transitions []Transition) []domain.Device {
	target := make(map[int]bool, len(transitions))
	for _, t := range transitions {
		target[t.ActuatorID] = t.To
	}
	out := make([]domain.Device, len(devices))
	for i, d := range devices {
		if to, ok := target[d.ActuatorID]; ok {
			d.IsOn = to
		}
		out[i] = d
	}
	return out
}

func transition(d domain.Device, to bool, reason string) Transition {
	return Transition{
		ActuatorID: d.ActuatorID,
		RoomID:     d.RoomID,
		Name:       d.Name,
		DeviceType: d.Type,
		From:       d.IsOn,
		To:         to,
		Reason:     reason,
	}
}
