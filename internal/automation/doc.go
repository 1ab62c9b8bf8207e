// Package automation decides when actuators should switch on or off from
// live sensor readings.
//
// The decision itself is a pure function, Evaluate, over the device
// projection, a Readings snapshot and a Thresholds table. Each device class
// compares one sensor channel against an on/off pair with a deadband
// between them, so a reading that wanders inside the deadband never
// toggles anything:
//
//	fan, ac          on when temperature >= on, off when temperature < off
//	ceiling light    on when light < on,        off when light >= off
//	bulb             on when light < on and motion,
//	                 off when light >= off or no motion
//	purifier         on when pm2.5 > on,        off when pm2.5 < off
//
// Light thresholds run the other way round (on < off) because less light
// means the lamp should come on.
//
// Plan gates Evaluate on the active Mode: MANUAL yields nothing, AUTO
// evaluates, DISABLED switches every device that is on off.
//
// Controller is the stateful part. It keeps the latest readings per room,
// evaluates a room whenever its readings change (and every room on a
// ticker), hands each transition to the command dispatcher so the physical
// actuator follows, and reports it ("[AUTO] Fan turned on").
package automation
