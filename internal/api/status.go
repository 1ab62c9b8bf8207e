package api

import (
	"errors"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/infrastructure/mqtt"
	"github.com/alph853/IoT-smartOffice/internal/telemetry"
)

// SystemStatus is the response of GET /status.
type SystemStatus struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Stream        StreamStatus   `json:"stream"`
	Stores        StoreCounts    `json:"stores"`
	WebSocket     WSMetrics      `json:"websocket"`
	Automation    string         `json:"automation_mode"`
	MQTT          *bool          `json:"mqtt_connected,omitempty"`
	InfluxDB      *bool          `json:"influxdb_connected,omitempty"`
	Journal       bool           `json:"journal_enabled"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// StreamStatus describes the backend event stream.
type StreamStatus struct {
	State                string `json:"state"`
	UIReady              bool   `json:"ui_ready"`
	PendingNotifications int    `json:"pending_notifications"`
}

// StoreCounts holds the size of each store.
type StoreCounts struct {
	Rooms         int `json:"rooms"`
	Sensors       int `json:"sensors"`
	Actuators     int `json:"actuators"`
	Notifications int `json:"notifications"`
	Unread        int `json:"unread"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// handleStatus returns a snapshot of the daemon's state.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Stream: StreamStatus{
			State:                s.stream.State().String(),
			UIReady:              s.stream.UIReady(),
			PendingNotifications: s.stream.PendingNotifications(),
		},
		Stores: StoreCounts{
			Rooms:         s.stores.Rooms.Count(),
			Sensors:       s.stores.Sensors.Count(),
			Actuators:     s.stores.Actuators.Count(),
			Notifications: s.stores.Notifications.Count(),
			Unread:        s.stores.Notifications.UnreadCount(),
		},
		WebSocket:  WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Automation: string(s.automation.Mode()),
		Journal:    s.journal != nil,
	}
	if s.mqtt != nil {
		connected := s.mqtt.IsConnected()
		status.MQTT = &connected
	}
	if s.influx != nil {
		connected := s.influx.IsConnected()
		status.InfluxDB = &connected
	}

	writeJSON(w, http.StatusOK, status)
}

// handleUIReady marks the UI ready, releasing buffered notifications.
func (s *Server) handleUIReady(w http.ResponseWriter, _ *http.Request) {
	s.stream.SetUIReady()
	writeJSON(w, http.StatusOK, map[string]any{
		"ui_ready":      true,
		"notifications": s.stores.Notifications.Count(),
	})
}

// handleSimulateStream feeds the body to the stream client as if it had
// arrived from the backend.
func (s *Server) handleSimulateStream(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}
	if len(payload) == 0 {
		writeBadRequest(w, "empty frame")
		return
	}
	s.stream.HandleMessage(payload)
	w.WriteHeader(http.StatusAccepted)
}

// handleInjectTelemetry feeds the body to the telemetry ingester as if it
// had been published by the gateway for MCU {id}.
func (s *Server) handleInjectTelemetry(w http.ResponseWriter, r *http.Request) {
	if s.telemetry == nil {
		writeUnavailable(w, "telemetry ingestion is disabled")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}

	err = s.telemetry.Handle(mqtt.Topics{}.Telemetry(id), payload)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, telemetry.ErrUnknownMCU):
		writeNotFound(w, "mcu not found")
	default:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	}
}
