package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, automation.ErrInvalidThreshold) {
//	    // reject the configuration
//	}
var (
	// ErrInvalidThreshold is returned when an on/off pair has no deadband in
	// the direction its sensor class requires.
	ErrInvalidThreshold = errors.New("automation: invalid threshold")

	// ErrUnknownDeviceType is returned when a threshold names no known device type.
	ErrUnknownDeviceType = errors.New("automation: unknown device type")

	// ErrInvalidMode is returned when a mode string is not manual, auto or disabled.
	ErrInvalidMode = errors.New("automation: invalid mode")
)
