package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSensorReading = "sensor_reading"
	MeasurementTransition    = "automation_transition"
)

// Reading is one sensor value reported by a gateway.
type Reading struct {
	MCUID  int
	RoomID int
	Sensor string
	Value  float64
	At     time.Time
}

// Transition is one automation on/off change.
type Transition struct {
	ActuatorID int
	RoomID     int
	DeviceType string
	On         bool
	Reason     string
	At         time.Time
}

// SensorReadingPoint builds the sensor_reading point for r. A zero At is
// stamped with the current time.
func SensorReadingPoint(r Reading) *write.Point {
	return write.NewPoint(
		MeasurementSensorReading,
		map[string]string{
			"mcu_id":  strconv.Itoa(r.MCUID),
			"room_id": strconv.Itoa(r.RoomID),
			"sensor":  r.Sensor,
		},
		map[string]any{"value": r.Value},
		stamp(r.At),
	)
}

// TransitionPoint builds the automation_transition point for t.
func TransitionPoint(t Transition) *write.Point {
	state := 0
	if t.On {
		state = 1
	}
	return write.NewPoint(
		MeasurementTransition,
		map[string]string{
			"actuator_id": strconv.Itoa(t.ActuatorID),
			"room_id":     strconv.Itoa(t.RoomID),
			"device_type": t.DeviceType,
		},
		map[string]any{
			"state":  state,
			"reason": t.Reason,
		},
		stamp(t.At),
	)
}

// WriteSensorReading queues a sensor_reading point. No-op when disconnected.
func (c *Client) WriteSensorReading(r Reading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(SensorReadingPoint(r))
}

// WriteTransition queues an automation_transition point. No-op when disconnected.
func (c *Client) WriteTransition(t Transition) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(TransitionPoint(t))
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
