package automation

import (
	"context"
	"sync"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

// DeviceSource supplies the current device projections.
// *store.ActuatorStore satisfies it.
type DeviceSource interface {
	DevicesForRoom(roomID int) []domain.Device
	RoomIDs() []int
}

// Commander makes the physical actuator follow a transition.
// The command dispatcher satisfies it.
type Commander interface {
	ApplyTransition(ctx context.Context, actuatorID int, on bool) error
}

// Reporter receives every applied transition.
type Reporter interface {
	ReportTransition(ctx context.Context, t Transition)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, t Transition)

// ReportTransition calls f.
func (f ReporterFunc) ReportTransition(ctx context.Context, t Transition) {
	f(ctx, t)
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Mode       Mode
	Thresholds Thresholds

	// Interval is the period of the full re-evaluation. Zero disables it.
	Interval time.Duration
}

// Controller runs Plan against live readings and applies the result.
//
// Evaluations are serialised, so two passes never race on the same device.
//
// Thread Safety: all methods are safe for concurrent use.
type Controller struct {
	devices    DeviceSource
	commander  Commander
	thresholds Thresholds
	interval   time.Duration
	board      *ReadingsBoard
	logger     Logger

	mu        sync.RWMutex
	mode      Mode
	reporters []Reporter

	evalMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int]struct{}
	wake      chan struct{}
}

// NewController creates a Controller. Thresholds are copied and are
// read-only afterwards.
//
// Parameters:
//   - cfg: initial mode, thresholds (nil means DefaultThresholds) and interval
//   - devices: source of device projections
//   - commander: dispatcher for the resulting commands (may be nil in tests)
//   - logger: Logger instance (nil for no logging)
func NewController(cfg ControllerConfig, devices DeviceSource, commander Commander, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeManual
	}
	return &Controller{
		devices:    devices,
		commander:  commander,
		thresholds: thresholds.Clone(),
		interval:   cfg.Interval,
		board:      NewReadingsBoard(),
		logger:     logger,
		mode:       mode,
		pending:    make(map[int]struct{}),
		wake:       make(chan struct{}, 1),
	}
}

// AddReporter registers a Reporter. Call before Run.
func (c *Controller) AddReporter(r Reporter) {
	c.mu.Lock()
	c.reporters = append(c.reporters, r)
	c.mu.Unlock()
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode changes the active mode and immediately evaluates every room,
// so switching to DISABLED turns everything off at once.
func (c *Controller) SetMode(ctx context.Context, mode Mode) []Transition {
	c.mu.Lock()
	prev := c.mode
	c.mode = mode
	c.mu.Unlock()

	if prev != mode {
		c.logger.Info("automation mode changed", "from", prev, "to", mode)
	}
	return c.EvaluateAll(ctx)
}

// Thresholds returns a copy of the threshold table.
func (c *Controller) Thresholds() Thresholds {
	return c.thresholds.Clone()
}

// Readings returns the latest readings of a room.
func (c *Controller) Readings(roomID int) Readings {
	return c.board.Snapshot(roomID)
}

// UpdateReading records a sensor value and schedules the room for evaluation.
func (c *Controller) UpdateReading(roomID int, t SensorType, v float64) {
	c.board.Set(roomID, t, v)
	c.schedule(roomID)
}

// UpdateMotion records the motion channel and schedules the room for evaluation.
func (c *Controller) UpdateMotion(roomID int, detected bool) {
	c.board.SetMotion(roomID, detected)
	c.schedule(roomID)
}

// UpdateReadings records every channel of one telemetry message, plus
// motion when non-nil, and schedules the room once.
func (c *Controller) UpdateReadings(roomID int, values map[SensorType]float64, motion *bool) {
	if len(values) == 0 && motion == nil {
		return
	}
	c.board.Apply(roomID, values, motion)
	c.schedule(roomID)
}

// EvaluateRoom plans and applies the transitions for one room.
//
// Returns:
//   - []Transition: the transitions applied
func (c *Controller) EvaluateRoom(ctx context.Context, roomID int) []Transition {
	c.evalMu.Lock()
	defer c.evalMu.Unlock()
	return c.evaluateLocked(ctx, roomID)
}

// EvaluateAll plans and applies the transitions for every room with devices.
func (c *Controller) EvaluateAll(ctx context.Context) []Transition {
	c.evalMu.Lock()
	defer c.evalMu.Unlock()

	var out []Transition
	for _, roomID := range c.devices.RoomIDs() {
		out = append(out, c.evaluateLocked(ctx, roomID)...)
	}
	return out
}

// Run evaluates scheduled rooms as readings arrive, and every room on the
// configured interval, until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	var tick <-chan time.Time
	if c.interval > 0 {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			for _, roomID := range c.takePending() {
				c.EvaluateRoom(ctx, roomID)
			}
		case <-tick:
			c.EvaluateAll(ctx)
		}
	}
}

func (c *Controller) evaluateLocked(ctx context.Context, roomID int) []Transition {
	devices := c.devices.DevicesForRoom(roomID)
	if len(devices) == 0 {
		return nil
	}

	transitions := Plan(c.Mode(), devices, c.board.Snapshot(roomID), c.thresholds)
	for _, t := range transitions {
		c.apply(ctx, t)
	}
	return transitions
}

func (c *Controller) apply(ctx context.Context, t Transition) {
	if c.commander != nil {
		if err := c.commander.ApplyTransition(ctx, t.ActuatorID, t.To); err != nil {
			c.logger.Warn("automation command not delivered",
				"actuator_id", t.ActuatorID,
				"to", t.To,
				"error", err,
			)
		}
	}

	c.logger.Info(t.Message(),
		"actuator_id", t.ActuatorID,
		"room_id", t.RoomID,
		"reason", t.Reason,
	)

	c.mu.RLock()
	reporters := c.reporters
	c.mu.RUnlock()
	for _, r := range reporters {
		r.ReportTransition(ctx, t)
	}
}

func (c *Controller) schedule(roomID int) {
	c.pendingMu.Lock()
	c.pending[roomID] = struct{}{}
	c.pendingMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) takePending() []int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	rooms := make([]int, 0, len(c.pending))
	for id := range c.pending {
		rooms = append(rooms, id)
	}
	clear(c.pending)
	return rooms
}
