package telemetry

import "errors"

// Domain errors for the telemetry package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, telemetry.ErrUnknownMCU) {
//	    // the gateway knows an MCU the backend has not announced yet
//	}
var (
	// ErrInvalidTopic is returned when the topic carries no MCU id.
	ErrInvalidTopic = errors.New("telemetry: invalid topic")

	// ErrMalformedPayload is returned when the payload is not a JSON object.
	ErrMalformedPayload = errors.New("telemetry: malformed payload")

	// ErrUnknownMCU is returned when the MCU is in no known room.
	ErrUnknownMCU = errors.New("telemetry: unknown mcu")
)
