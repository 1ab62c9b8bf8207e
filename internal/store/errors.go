package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, store.ErrRoomNotFound) {
//	    // event refers to an office we have not synchronised yet
//	}
var (
	// ErrRoomNotFound is returned when an MCU references an office_id with no local room.
	ErrRoomNotFound = errors.New("store: room not found")

	// ErrMCUNotFound is returned when an MCU id does not exist locally.
	ErrMCUNotFound = errors.New("store: mcu not found")

	// ErrActuatorNotFound is returned when an actuator id does not exist locally.
	ErrActuatorNotFound = errors.New("store: actuator not found")
)
