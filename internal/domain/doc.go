// Package domain defines the value records synchronised from the smart-office
// backend: rooms (offices), MCUs, their sensors and actuators, the Device
// projection used for control, and notifications.
//
// Records are plain data. The only behaviour here is derivation: the MCU
// location label, the DeviceType of an actuator, the display form of a
// notification timestamp and the notification icon category.
//
// Records returned by the stores are copies; mutate them freely and hand
// them back through a store method to publish the change.
package domain
