// Package metrics exposes officesync Prometheus collectors.
//
// Collectors implements the observer hooks of the stream client, command
// dispatcher and telemetry ingester, and the automation Reporter, so wiring
// is a matter of passing one value around.
package metrics

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/store"
	"github.com/alph853/IoT-smartOffice/internal/stream"
)

const metricPrefix = "officesync_"

var (
	registerOnce sync.Once
	defaultSet   *Collectors
)

// Collectors holds every officesync metric.
type Collectors struct {
	streamMessages   *prometheus.CounterVec
	streamReconnects prometheus.Counter
	streamConnected  prometheus.Gauge

	transitions *prometheus.CounterVec
	commands    *prometheus.CounterVec
	telemetry   *prometheus.CounterVec

	notificationsUnread prometheus.Gauge
	uiClients           prometheus.Gauge
}

// Default returns the collectors registered with the default Prometheus
// registry, registering them on first use.
func Default() *Collectors {
	registerOnce.Do(func() {
		defaultSet = New(prometheus.DefaultRegisterer)
	})
	return defaultSet
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		streamMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_messages_total",
				Help: "Inbound event stream messages by method and result",
			},
			[]string{"method", "result"},
		),
		streamReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_reconnects_total",
				Help: "Scheduled event stream reconnects",
			},
		),
		streamConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_connected",
				Help: "1 while the event stream is connected",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "automation_transitions_total",
				Help: "Automation transitions by device type and target state",
			},
			[]string{"device_type", "to"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Outbound commands by method and result",
			},
			[]string{"method", "result"},
		),
		telemetry: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "telemetry_messages_total",
				Help: "Gateway telemetry messages by result",
			},
			[]string{"result"},
		),
		notificationsUnread: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "notifications_unread",
				Help: "Unread notifications in the store",
			},
		),
		uiClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "ui_clients",
				Help: "Connected UI WebSocket clients",
			},
		),
	}

	reg.MustRegister(
		c.streamMessages,
		c.streamReconnects,
		c.streamConnected,
		c.transitions,
		c.commands,
		c.telemetry,
		c.notificationsUnread,
		c.uiClients,
	)
	return c
}

// ObserveState implements stream.Observer.
func (c *Collectors) ObserveState(s stream.State) {
	if s == stream.StateConnected {
		c.streamConnected.Set(1)
		return
	}
	c.streamConnected.Set(0)
}

// ObserveMessage implements stream.Observer.
func (c *Collectors) ObserveMessage(method, result string) {
	if method == "" {
		method = "none"
	}
	c.streamMessages.WithLabelValues(method, result).Inc()
}

// ObserveReconnect implements stream.Observer.
func (c *Collectors) ObserveReconnect() {
	c.streamReconnects.Inc()
}

// ObserveCommand implements command.Observer.
func (c *Collectors) ObserveCommand(method, result string) {
	c.commands.WithLabelValues(method, result).Inc()
}

// ObserveTelemetry implements telemetry.Observer.
func (c *Collectors) ObserveTelemetry(result string) {
	c.telemetry.WithLabelValues(result).Inc()
}

// ReportTransition implements automation.Reporter.
func (c *Collectors) ReportTransition(_ context.Context, t automation.Transition) {
	c.transitions.WithLabelValues(string(t.DeviceType), strconv.FormatBool(t.To)).Inc()
}

// SetUIClients records the number of connected UI clients.
func (c *Collectors) SetUIClients(n int) {
	c.uiClients.Set(float64(n))
}

// TrackNotifications keeps the unread gauge in step with the store.
//
// Returns:
//   - string: listener id for NotificationStore.RemoveListener
func (c *Collectors) TrackNotifications(n *store.NotificationStore) string {
	c.notificationsUnread.Set(float64(n.UnreadCount()))
	return n.AddListener(func(store.Event) {
		c.notificationsUnread.Set(float64(n.UnreadCount()))
	})
}
