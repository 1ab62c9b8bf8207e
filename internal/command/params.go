package command

import (
	"strings"

	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/stream"
)

// pixelCount is the number of addressable pixels on a lighting actuator.
const pixelCount = 4

// Brightness levels sent with setLighting.
const (
	BrightnessOn  = 100
	BrightnessOff = 0
)

// RGB is one pixel colour.
type RGB [3]int

// Named colours understood by lighting actuators.
var colorMap = map[string]RGB{
	"yellow": {255, 255, 0},
	"purple": {128, 0, 128},
	"orange": {255, 165, 0},
	"white":  {255, 255, 255},
	"pink":   {255, 192, 203},
}

var (
	white = RGB{255, 255, 255}
	black = RGB{0, 0, 0}
)

// LookupColor returns the RGB value of a named colour, ignoring case.
func LookupColor(name string) (RGB, bool) {
	c, ok := colorMap[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// LightingParams is the params object of setLighting.
type LightingParams struct {
	ActuatorID int   `json:"actuator_id"`
	Brightness int   `json:"brightness"`
	Color      []RGB `json:"color"`
}

// FanStateParams is the params object of setFanState.
type FanStateParams struct {
	ActuatorID int  `json:"actuator_id"`
	State      bool `json:"state"`
}

// ModeParams is the params object of setMode.
type ModeParams struct {
	ActuatorID int    `json:"actuator_id"`
	Mode       string `json:"mode"`
}

// lightingParams builds setLighting for on/off: full white or all dark.
func lightingParams(actuatorID int, on bool) LightingParams {
	if on {
		return solidLighting(actuatorID, white)
	}
	p := solidLighting(actuatorID, black)
	p.Brightness = BrightnessOff
	return p
}

func solidLighting(actuatorID int, c RGB) LightingParams {
	pixels := make([]RGB, pixelCount)
	for i := range pixels {
		pixels[i] = c
	}
	return LightingParams{ActuatorID: actuatorID, Brightness: BrightnessOn, Color: pixels}
}

// stateEnvelope picks the method and params for an on/off change of a
// device. Only lighting classes take setLighting; everything else is
// switched with setFanState.
func stateEnvelope(d domain.Device, on bool) (string, any) {
	if d.Type.IsLighting() {
		return stream.MethodSetLighting, lightingParams(d.ActuatorID, on)
	}
	return stream.MethodSetFanState, FanStateParams{ActuatorID: d.ActuatorID, State: on}
}
