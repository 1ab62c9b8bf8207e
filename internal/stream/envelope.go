package stream

import (
	"encoding/json"
	"fmt"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// Inbound methods.
const (
	MethodNewDeviceConnected = "newDeviceConnected"
	MethodDeviceUpdated      = "deviceUpdated"
	MethodNotification       = "notification"
)

// Outbound methods.
const (
	MethodSetFanState = "setFanState"
	MethodSetLighting = "setLighting"
	MethodSetMode     = "setMode"
)

// Envelope is the wire frame used in both directions.
type Envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// DeviceParams is the params object of newDeviceConnected and deviceUpdated.
type DeviceParams struct {
	Device *domain.MCU `json:"device"`
}

// NotificationParams is the params object of a notification frame.
// ID is a pointer so a missing id can be told apart from id 0.
type NotificationParams struct {
	ID         *int   `json:"id"`
	Message    string `json:"message"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	DeviceID   *int   `json:"device_id"`
	Timestamp  string `json:"ts"`
	ReadStatus bool   `json:"read_status"`
}

// Notification converts the params to a domain notification.
// A null device_id becomes 0.
func (p NotificationParams) Notification() domain.Notification {
	n := domain.Notification{
		Message:    p.Message,
		Title:      p.Title,
		Type:       p.Type,
		Timestamp:  p.Timestamp,
		ReadStatus: p.ReadStatus,
	}
	if p.ID != nil {
		n.ID = *p.ID
	}
	if p.DeviceID != nil {
		n.DeviceID = *p.DeviceID
	}
	return n
}

// Encode builds an envelope frame.
//
// Parameters:
//   - method: envelope method
//   - params: value marshalled into "params" (nil omits it)
//
// Returns:
//   - []byte: the JSON frame
//   - error: if params cannot be marshalled
func Encode(method string, params any) ([]byte, error) {
	env := Envelope{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding %s params: %w", method, err)
		}
		env.Params = raw
	}
	return json.Marshal(env)
}

// Decode parses a frame into an envelope. A frame without a method is
// reported as ErrMalformed.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Method == "" {
		return Envelope{}, fmt.Errorf("%w: missing method", ErrMalformed)
	}
	return env, nil
}
