// Package telemetry feeds gateway sensor readings into the automation
// engine and exports automation transitions.
//
// Gateways publish one JSON object per MCU on gateway/telemetry/{mcu_id}:
//
//	{"temperature":"27.5","humidity":"61","luminousity":"E","pm25":12,"motion":1}
//
// Values may be numbers or numeric strings. "E" marks a sensor error and is
// skipped. The MCU id resolves the room through the room store; readings
// for unknown MCUs are dropped. Accepted readings update the automation
// ReadingsBoard and, when configured, are written to InfluxDB.
//
// TransitionReporter publishes every applied transition on MQTT and writes
// it to InfluxDB.
package telemetry
