package command

import "errors"

// Domain errors for the command package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, command.ErrDebounced) {
//	    // the UI should re-read the actuator
//	}
var (
	// ErrDebounced is returned when a toggle arrives inside the debounce
	// window of an earlier one for the same actuator.
	ErrDebounced = errors.New("command: duplicate intent discarded")

	// ErrActuatorNotFound is returned when the target actuator is not in the stores.
	ErrActuatorNotFound = errors.New("command: actuator not found")

	// ErrInvalidMode is returned for a mode outside manual, auto, schedule and remote.
	ErrInvalidMode = errors.New("command: invalid mode")

	// ErrUnknownColor is returned for a colour name outside the colour map.
	ErrUnknownColor = errors.New("command: unknown color")

	// ErrNotDelivered wraps a send failure. The optimistic local change is
	// kept; the next backend update corrects it if needed.
	ErrNotDelivered = errors.New("command: not delivered")
)
