package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/backend"
	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/history"
	"github.com/alph853/IoT-smartOffice/internal/store"
	"github.com/alph853/IoT-smartOffice/internal/stream"
)

// DefaultDebounceWindow is used when Config.DebounceWindow is zero.
const DefaultDebounceWindow = 300 * time.Millisecond

// Method names recorded for the REST fallbacks.
const (
	MethodEnableMCU       = "enableMCU"
	MethodDisableMCU      = "disableMCU"
	MethodUpdateMCU       = "updateMCU"
	MethodMarkAsRead      = "markAsRead"
	MethodMarkAllAsRead   = "markAllAsRead"
	MethodDeleteAllNotifs = "deleteAllNotifications"
)

// Sender delivers an envelope on the event stream.
type Sender interface {
	SendMessage(method string, params any) error
}

// Backend is the REST collaborator used by the fallbacks.
type Backend interface {
	EnableMCU(ctx context.Context, id int) error
	DisableMCU(ctx context.Context, id int) error
	UpdateMCU(ctx context.Context, id int, update backend.MCUUpdate) error
	MarkAsRead(ctx context.Context, id int) error
	MarkAllAsRead(ctx context.Context) error
	DeleteAllNotifications(ctx context.Context) error
}

// Journal records outbound commands.
type Journal interface {
	RecordCommand(ctx context.Context, e history.CommandEntry) error
}

// Observer is told the outcome of every command.
type Observer interface {
	ObserveCommand(method, result string)
}

// Config configures a Dispatcher.
type Config struct {
	DebounceWindow time.Duration
}

// Dispatcher applies intents to the stores and sends them to the backend.
//
// Thread Safety: safe for concurrent use.
type Dispatcher struct {
	sender  Sender
	backend Backend
	stores  *store.Set
	logger  Logger
	window  time.Duration

	journal  Journal
	observer Observer

	// now is replaced in tests.
	now func() time.Time

	mu         sync.Mutex
	lastIntent map[int]time.Time // actuator id -> time of last accepted user toggle
}

// NewDispatcher creates a Dispatcher.
//
// Parameters:
//   - cfg: debounce window
//   - sender: event stream used for setFanState, setLighting and setMode
//   - rest: backend REST client (nil disables the REST fallbacks)
//   - stores: stores updated optimistically
//   - logger: Logger instance (nil for no logging)
func NewDispatcher(cfg Config, sender Sender, rest Backend, stores *store.Set, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	window := cfg.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Dispatcher{
		sender:     sender,
		backend:    rest,
		stores:     stores,
		logger:     logger,
		window:     window,
		now:        time.Now,
		lastIntent: make(map[int]time.Time),
	}
}

// SetJournal attaches a command journal. Call before use.
func (d *Dispatcher) SetJournal(j Journal) { d.journal = j }

// SetObserver attaches a command observer. Call before use.
func (d *Dispatcher) SetObserver(o Observer) { d.observer = o }

// SetActuatorState is the user toggle path.
//
// A request for the state the actuator already has sends nothing. Otherwise
// the first request inside the debounce window is applied and sent, and the
// rest return ErrDebounced after republishing the actuator.
//
// Returns:
//   - error: ErrActuatorNotFound, ErrDebounced, or ErrNotDelivered (the
//     local change is kept in that case)
func (d *Dispatcher) SetActuatorState(ctx context.Context, actuatorID int, on bool) error {
	dev, ok := d.stores.Actuators.Device(actuatorID)
	if !ok {
		return ErrActuatorNotFound
	}
	if dev.IsOn == on {
		return nil
	}
	if !d.acceptIntent(actuatorID) {
		d.stores.Actuators.Revert(actuatorID)
		method, _ := stateEnvelope(dev, on)
		d.finish(ctx, method, actuatorID, nil, history.ResultDebounced, nil)
		return ErrDebounced
	}
	return d.switchDevice(ctx, dev, on)
}

// ApplyTransition is the automation path: no debounce.
func (d *Dispatcher) ApplyTransition(ctx context.Context, actuatorID int, on bool) error {
	dev, ok := d.stores.Actuators.Device(actuatorID)
	if !ok {
		return ErrActuatorNotFound
	}
	if dev.IsOn == on {
		return nil
	}
	return d.switchDevice(ctx, dev, on)
}

// SetLightColor turns a lighting actuator on with a named colour.
func (d *Dispatcher) SetLightColor(ctx context.Context, actuatorID int, color string) error {
	rgb, ok := LookupColor(color)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	if _, err := d.stores.Actuators.SetOn(actuatorID, true); err != nil {
		return ErrActuatorNotFound
	}
	return d.send(ctx, stream.MethodSetLighting, actuatorID, solidLighting(actuatorID, rgb))
}

// SetMode changes the mode of an actuator. "scheduled" is accepted as
// schedule.
func (d *Dispatcher) SetMode(ctx context.Context, actuatorID int, mode string) error {
	canonical, ok := domain.NormalizeMode(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if _, err := d.stores.Actuators.SetMode(actuatorID, canonical); err != nil {
		return ErrActuatorNotFound
	}
	return d.send(ctx, stream.MethodSetMode, actuatorID, ModeParams{ActuatorID: actuatorID, Mode: canonical})
}

// EnableMCU marks an MCU online locally and asks the backend to enable it.
func (d *Dispatcher) EnableMCU(ctx context.Context, mcuID int) error {
	d.stores.Rooms.SetMCUStatus(mcuID, domain.StatusOnline)
	return d.rest(ctx, MethodEnableMCU, mcuID, "failed to enable MCU", func(b Backend) error {
		return b.EnableMCU(ctx, mcuID)
	})
}

// DisableMCU marks an MCU disabled locally and asks the backend to disable it.
func (d *Dispatcher) DisableMCU(ctx context.Context, mcuID int) error {
	d.stores.Rooms.SetMCUStatus(mcuID, domain.StatusDisabled)
	return d.rest(ctx, MethodDisableMCU, mcuID, "failed to disable MCU", func(b Backend) error {
		return b.DisableMCU(ctx, mcuID)
	})
}

// UpdateMCU stores the edited descriptive fields of an MCU locally and
// writes them to the backend. Sensors, actuators and their on/off values
// are left to the next server payload.
func (d *Dispatcher) UpdateMCU(ctx context.Context, mcu domain.MCU) error {
	if !d.stores.Rooms.UpdateMCUInfo(mcu.ID, mcu) {
		return fmt.Errorf("failed to update MCU: %w: mcu %d", store.ErrMCUNotFound, mcu.ID)
	}
	return d.rest(ctx, MethodUpdateMCU, mcu.ID, "failed to update MCU", func(b Backend) error {
		return b.UpdateMCU(ctx, mcu.ID, backend.UpdateFromMCU(mcu))
	})
}

// MarkAsRead marks one notification read. Local notifications never reach
// the backend.
func (d *Dispatcher) MarkAsRead(ctx context.Context, id int) error {
	d.stores.Notifications.MarkRead(id)
	if id < 0 {
		return nil
	}
	return d.rest(ctx, MethodMarkAsRead, id, "failed to mark notification as read", func(b Backend) error {
		return b.MarkAsRead(ctx, id)
	})
}

// MarkAllAsRead marks every notification read.
func (d *Dispatcher) MarkAllAsRead(ctx context.Context) error {
	d.stores.Notifications.MarkAllRead()
	return d.rest(ctx, MethodMarkAllAsRead, 0, "failed to mark all notifications as read", func(b Backend) error {
		return b.MarkAllAsRead(ctx)
	})
}

// DeleteAllNotifications clears the notification store and the backend list.
func (d *Dispatcher) DeleteAllNotifications(ctx context.Context) error {
	d.stores.Notifications.Clear()
	return d.rest(ctx, MethodDeleteAllNotifs, 0, "failed to delete notifications", func(b Backend) error {
		return b.DeleteAllNotifications(ctx)
	})
}

// acceptIntent reports whether a user toggle for the actuator falls outside
// the window of the last accepted one, recording it if so.
func (d *Dispatcher) acceptIntent(actuatorID int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastIntent[actuatorID]; ok && now.Sub(last) < d.window {
		return false
	}
	d.lastIntent[actuatorID] = now
	return true
}

func (d *Dispatcher) switchDevice(ctx context.Context, dev domain.Device, on bool) error {
	if _, err := d.stores.Actuators.SetOn(dev.ActuatorID, on); err != nil {
		return ErrActuatorNotFound
	}
	method, params := stateEnvelope(dev, on)
	return d.send(ctx, method, dev.ActuatorID, params)
}

func (d *Dispatcher) send(ctx context.Context, method string, targetID int, params any) error {
	err := d.sender.SendMessage(method, params)
	if err != nil {
		d.logger.Warn("command not delivered", "method", method, "target_id", targetID, "error", err)
		err = fmt.Errorf("%w: %w", ErrNotDelivered, err)
		d.finish(ctx, method, targetID, params, history.ResultFailed, err)
		return err
	}
	d.logger.Debug("command sent", "method", method, "target_id", targetID)
	d.finish(ctx, method, targetID, params, history.ResultSent, nil)
	return nil
}

func (d *Dispatcher) rest(ctx context.Context, method string, targetID int, failure string, call func(Backend) error) error {
	if d.backend == nil {
		return nil
	}
	if err := call(d.backend); err != nil {
		d.logger.Warn("backend call failed", "method", method, "target_id", targetID, "error", err)
		err = fmt.Errorf("%s: %w", failure, err)
		d.finish(ctx, method, targetID, nil, history.ResultFailed, err)
		return err
	}
	d.finish(ctx, method, targetID, nil, history.ResultSent, nil)
	return nil
}

// finish reports the outcome to the observer and the journal.
func (d *Dispatcher) finish(ctx context.Context, method string, targetID int, params any, result string, cmdErr error) {
	if d.observer != nil {
		d.observer.ObserveCommand(method, result)
	}
	if d.journal == nil {
		return
	}

	entry := history.CommandEntry{Method: method, TargetID: targetID, Result: result}
	if params != nil {
		entry.Payload, _ = json.Marshal(params) //nolint:errcheck // params are plain structs
	}
	if cmdErr != nil {
		entry.Error = cmdErr.Error()
	}
	if err := d.journal.RecordCommand(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("journal write failed", "method", method, "error", err)
	}
}
