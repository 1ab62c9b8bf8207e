package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alph853/IoT-smartOffice/internal/automation"
)

// sensorError is the value a gateway reports for a failed sensor.
const sensorError = "E"

// channelAliases maps payload keys to sensor channels.
var channelAliases = map[string]automation.SensorType{
	"temperature": automation.SensorTemperature,
	"humidity":    automation.SensorHumidity,
	"luminousity": automation.SensorLight,
	"luminosity":  automation.SensorLight,
	"light":       automation.SensorLight,
	"pm25":        automation.SensorPM25,
	"pm2.5":       automation.SensorPM25,
}

// Payload is a parsed telemetry message.
type Payload struct {
	Values map[automation.SensorType]float64

	// Motion is nil when the message carries no usable motion value.
	Motion *bool

	// Skipped lists keys whose value was an error marker, unparsable or not
	// finite.
	Skipped []string
}

// Parse decodes a telemetry message. Unknown keys are ignored.
func Parse(data []byte) (Payload, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if raw == nil {
		return Payload{}, fmt.Errorf("%w: not an object", ErrMalformedPayload)
	}

	p := Payload{Values: make(map[automation.SensorType]float64)}
	for key, value := range raw {
		key = strings.ToLower(key)
		if key == "motion" {
			if m, ok := parseMotion(value); ok {
				p.Motion = &m
			} else {
				p.Skipped = append(p.Skipped, key)
			}
			continue
		}
		channel, known := channelAliases[key]
		if !known {
			continue
		}
		if v, ok := parseValue(value); ok {
			p.Values[channel] = v
		} else {
			p.Skipped = append(p.Skipped, key)
		}
	}
	return p, nil
}

// parseValue accepts a JSON number or a numeric string. NaN and infinities
// are rejected.
func parseValue(raw json.RawMessage) (float64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := n.Float64()
		return v, err == nil && finite(v)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, sensorError) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// parseMotion accepts a bool, a number (non-zero is motion) or the string
// form of either.
func parseMotion(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed, true
		}
	}
	if v, ok := parseValue(raw); ok {
		return v != 0, true
	}
	return false, false
}
