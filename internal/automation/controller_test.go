package automation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockDevices is an in-memory DeviceSource whose state follows commands.
type mockDevices struct {
	mu      sync.Mutex
	devices []domain.Device
}

func (m *mockDevices) DevicesForRoom(roomID int) []domain.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Device
	for _, d := range m.devices {
		if d.RoomID == roomID {
			out = append(out, d)
		}
	}
	return out
}

func (m *mockDevices) RoomIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, d := range m.devices {
		if !seen[d.RoomID] {
			seen[d.RoomID] = true
			out = append(out, d.RoomID)
		}
	}
	return out
}

// ApplyTransition makes mockDevices its own Commander.
func (m *mockDevices) ApplyTransition(_ context.Context, actuatorID int, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.devices {
		if m.devices[i].ActuatorID == actuatorID {
			m.devices[i].IsOn = on
		}
	}
	return nil
}

func (m *mockDevices) isOn(actuatorID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.ActuatorID == actuatorID {
			return d.IsOn
		}
	}
	return false
}

type reportLog struct {
	mu     sync.Mutex
	events []Transition
}

func (r *reportLog) ReportTransition(_ context.Context, t Transition) {
	r.mu.Lock()
	r.events = append(r.events, t)
	r.mu.Unlock()
}

func (r *reportLog) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newFixture(mode Mode) (*Controller, *mockDevices, *reportLog) {
	devices := &mockDevices{devices: []domain.Device{
		{ActuatorID: 1, RoomID: 1, Name: "Fan", Type: domain.DeviceTypeFan},
		{ActuatorID: 2, RoomID: 2, Name: "Lamp", Type: domain.DeviceTypeCeilingLight, IsOn: true},
	}}
	ctrl := NewController(ControllerConfig{Mode: mode}, devices, devices, nil)
	reports := &reportLog{}
	ctrl.AddReporter(reports)
	return ctrl, devices, reports
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestController_EvaluateRoomAppliesAndReports(t *testing.T) {
	ctrl, devices, reports := newFixture(ModeAuto)
	ctx := context.Background()

	ctrl.board.Set(1, SensorTemperature, 29)

	got := ctrl.EvaluateRoom(ctx, 1)
	if len(got) != 1 || got[0].Message() != "[AUTO] Fan turned on" {
		t.Fatalf("EvaluateRoom() = %+v", got)
	}
	if !devices.isOn(1) {
		t.Error("commander did not receive the transition")
	}
	if reports.count() != 1 {
		t.Errorf("reported %d transitions, want 1", reports.count())
	}

	// Second pass over the same readings is a no-op.
	if again := ctrl.EvaluateRoom(ctx, 1); len(again) != 0 {
		t.Errorf("second EvaluateRoom() = %+v, want none", again)
	}
}

func TestController_ManualModeUntouched(t *testing.T) {
	ctrl, devices, reports := newFixture(ModeManual)

	ctrl.board.Set(1, SensorTemperature, 40)
	ctrl.board.Set(2, SensorLight, 100)

	if got := ctrl.EvaluateAll(context.Background()); len(got) != 0 {
		t.Errorf("EvaluateAll() in manual = %+v", got)
	}
	if devices.isOn(1) || !devices.isOn(2) {
		t.Error("manual mode changed device state")
	}
	if reports.count() != 0 {
		t.Error("manual mode reported transitions")
	}
}

func TestController_SetModeDisabledForcesOff(t *testing.T) {
	ctrl, devices, _ := newFixture(ModeAuto)

	got := ctrl.SetMode(context.Background(), ModeDisabled)

	if ctrl.Mode() != ModeDisabled {
		t.Errorf("Mode() = %q", ctrl.Mode())
	}
	if len(got) != 1 || got[0].ActuatorID != 2 || got[0].To {
		t.Errorf("SetMode(disabled) = %+v, want lamp off", got)
	}
	if devices.isOn(2) {
		t.Error("lamp still on after disabling automation")
	}
}

func TestController_RunReactsToReadings(t *testing.T) {
	ctrl, devices, _ := newFixture(ModeAuto)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()

	ctrl.UpdateReading(1, SensorTemperature, 30)

	deadline := time.Now().Add(2 * time.Second)
	for !devices.isOn(1) {
		if time.Now().After(deadline) {
			t.Fatal("fan not switched on after reading update")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestController_ThresholdsAreCopied(t *testing.T) {
	th := DefaultThresholds()
	ctrl := NewController(ControllerConfig{Thresholds: th}, &mockDevices{}, nil, nil)

	th[domain.DeviceTypeFan] = Threshold{On: 99, Off: 98, SensorType: SensorTemperature}

	if got := ctrl.Thresholds()[domain.DeviceTypeFan]; got.On != 28 {
		t.Errorf("controller threshold changed through caller map: %+v", got)
	}
	if ctrl.Mode() != ModeManual {
		t.Errorf("default mode = %q, want manual", ctrl.Mode())
	}
}

func TestController_UpdateMotion(t *testing.T) {
	ctrl := NewController(ControllerConfig{}, &mockDevices{}, nil, nil)
	ctrl.UpdateMotion(3, true)

	if !ctrl.Readings(3).Motion() {
		t.Error("motion not recorded")
	}
}

func TestController_UpdateReadingsMerges(t *testing.T) {
	ctrl := NewController(ControllerConfig{}, &mockDevices{}, nil, nil)
	ctrl.UpdateReading(2, SensorHumidity, 40)
	before := ctrl.Readings(2)

	motion := true
	ctrl.UpdateReadings(2, map[SensorType]float64{SensorTemperature: 26, SensorLight: 10}, &motion)
	motion = false

	r := ctrl.Readings(2)
	for ch, want := range map[SensorType]float64{SensorHumidity: 40, SensorTemperature: 26, SensorLight: 10} {
		if v, ok := r.Value(ch); !ok || v != want {
			t.Errorf("Value(%s) = %v, %v, want %v", ch, v, ok, want)
		}
	}
	if !r.Motion() {
		t.Error("motion not recorded, or caller's variable aliased")
	}
	if _, ok := before.Value(SensorTemperature); ok {
		t.Error("earlier snapshot changed")
	}

	ctrl.UpdateReadings(2, nil, nil)
	if got := len(ctrl.Readings(2).Map()); got != 4 {
		t.Errorf("Map() has %d entries, want 4", got)
	}
}
