// Package influxdb writes officesync time series to InfluxDB v2.
//
// Two measurements are written:
//   - sensor_reading: every accepted gateway reading, tagged by MCU, room
//     and sensor type
//   - automation_transition: every on/off change the automation engine
//     applies, tagged by actuator, room and device type
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSensorReading(influxdb.Reading{MCUID: 5, RoomID: 1, Sensor: "temperature", Value: 27.5})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched (batch_size, flush_interval); write failures are delivered to the
// SetOnError callback.
package influxdb
