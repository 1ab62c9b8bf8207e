package stream

import (
	"cmp"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/store"
)

// welcomeTimestampLayout matches the backend's notification timestamps.
const welcomeTimestampLayout = "2006-01-02T15:04:05.000000"

// HandleMessage decodes one inbound frame and applies it to the stores.
//
// It never panics and never returns an error: every failure is logged and
// the frame is dropped. It is exported so in-process producers can inject
// frames exactly as if the backend had sent them.
func (c *Client) HandleMessage(payload []byte) {
	method := ""
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic handling stream message", "method", method, "panic", r)
			c.observeMessage(method, ResultPanic)
		}
	}()

	env, err := Decode(payload)
	if err != nil {
		if c.handleWelcome(payload) {
			return
		}
		c.logger.Warn("dropping malformed stream message", "error", err, "bytes", len(payload))
		c.observeMessage("", ResultMalformed)
		return
	}
	method = env.Method

	switch env.Method {
	case MethodNewDeviceConnected, MethodDeviceUpdated:
		c.observeMessage(method, c.handleDevice(env))
	case MethodNotification:
		c.observeMessage(method, c.handleNotification(env))
	default:
		c.logger.Warn("ignoring unknown stream method", "method", env.Method)
		c.observeMessage(method, ResultIgnored)
	}
}

// handleDevice upserts the MCU of a device frame. A frame for an existing
// id replaces the MCU in place; an unknown id is appended to its room.
func (c *Client) handleDevice(env Envelope) string {
	var p DeviceParams
	if err := json.Unmarshal(env.Params, &p); err != nil || p.Device == nil {
		c.logger.Warn("dropping device message without device", "method", env.Method, "error", err)
		return ResultMalformed
	}

	mcu, created, err := c.stores.IngestMCU(*p.Device)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.logger.Warn("dropping device for unknown office",
				"method", env.Method,
				"mcu_id", p.Device.ID,
				"office_id", p.Device.OfficeID,
			)
			return ResultDropped
		}
		c.logger.Error("applying device message failed", "method", env.Method, "mcu_id", p.Device.ID, "error", err)
		return ResultDropped
	}

	c.logger.Debug("device applied",
		"method", env.Method,
		"mcu_id", mcu.ID,
		"office_id", mcu.OfficeID,
		"status", mcu.Status,
		"created", created,
	)
	return ResultApplied
}

func (c *Client) handleNotification(env Envelope) string {
	var p NotificationParams
	if err := json.Unmarshal(env.Params, &p); err != nil {
		c.logger.Warn("dropping malformed notification", "error", err)
		return ResultMalformed
	}
	if p.ID == nil {
		c.logger.Warn("dropping notification without id")
		return ResultMalformed
	}
	if c.deliver(p.Notification()) {
		return ResultApplied
	}
	return ResultBuffered
}

// handleWelcome turns a plain greeting frame into a local notification.
func (c *Client) handleWelcome(payload []byte) bool {
	text := strings.TrimSpace(string(payload))
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "welcome") && !strings.Contains(lower, "connected") {
		return false
	}

	// A JSON greeting without a method may still carry a message field.
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(payload, &obj) == nil && obj.Message != "" {
		text = obj.Message
	}

	c.deliver(domain.Notification{
		ID:        c.stores.Notifications.NextLocalID(),
		Title:     "Welcome",
		Message:   text,
		Type:      domain.NotificationTypeWelcome,
		Timestamp: time.Now().UTC().Format(welcomeTimestampLayout),
	})
	c.observeMessage(domain.NotificationTypeWelcome, ResultApplied)
	return true
}

// deliver inserts a notification, or buffers it until SetUIReady.
// Returns true if the notification reached the store.
func (c *Client) deliver(n domain.Notification) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if !c.uiReady {
		c.pending = append(c.pending, n)
		c.logger.Debug("notification buffered until ui ready", "id", n.ID, "pending", len(c.pending))
		return false
	}
	c.stores.Notifications.Add(n)
	return true
}

// SetUIReady drains the early-notification buffer into the store in arrival
// order and lets later notifications through directly. Only the first call
// has an effect.
func (c *Client) SetUIReady() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if c.uiReady {
		return
	}
	c.uiReady = true
	for _, n := range c.pending {
		c.stores.Notifications.Add(n)
	}
	if len(c.pending) > 0 {
		c.logger.Info("buffered notifications delivered", "count", len(c.pending))
	}
	c.pending = nil
}

// UIReady reports whether SetUIReady has been called.
func (c *Client) UIReady() bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	return c.uiReady
}

// PendingNotifications returns the number of buffered notifications.
func (c *Client) PendingNotifications() int {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	return len(c.pending)
}

// replaceNotifications installs a server list newest-first, keeping
// local notifications that the server cannot know about.
func (c *Client) replaceNotifications(list []domain.Notification) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	sorted := slices.Clone(list)
	slices.SortStableFunc(sorted, func(a, b domain.Notification) int {
		return cmp.Compare(b.ID, a.ID)
	})
	for _, n := range c.stores.Notifications.All() {
		if n.ID < 0 {
			sorted = append(sorted, n)
		}
	}
	c.stores.Notifications.ReplaceAll(sorted)
}

