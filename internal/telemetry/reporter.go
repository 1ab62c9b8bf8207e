package telemetry

import (
	"context"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/influxdb"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/mqtt"
)

// Publisher sends a JSON message. *mqtt.Client implements it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// TransitionWriter stores transitions as time series. *influxdb.Client implements it.
type TransitionWriter interface {
	WriteTransition(t influxdb.Transition)
}

// transitionMessage is the MQTT body of an automation transition.
type transitionMessage struct {
	automation.Transition
	Message string `json:"message"`
}

// TransitionReporter exports automation transitions. Either destination
// may be nil.
type TransitionReporter struct {
	pub    Publisher
	writer TransitionWriter
	logger Logger
}

// NewTransitionReporter creates a TransitionReporter.
func NewTransitionReporter(pub Publisher, writer TransitionWriter, logger Logger) *TransitionReporter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &TransitionReporter{pub: pub, writer: writer, logger: logger}
}

// ReportTransition implements automation.Reporter.
func (r *TransitionReporter) ReportTransition(_ context.Context, t automation.Transition) {
	if r.writer != nil {
		r.writer.WriteTransition(influxdb.Transition{
			ActuatorID: t.ActuatorID,
			RoomID:     t.RoomID,
			DeviceType: string(t.DeviceType),
			On:         t.To,
			Reason:     t.Reason,
		})
	}
	if r.pub != nil {
		topic := mqtt.Topics{}.AutomationTransition(t.ActuatorID)
		if err := r.pub.PublishJSON(topic, transitionMessage{Transition: t, Message: t.Message()}); err != nil {
			r.logger.Warn("transition not published", "topic", topic, "error", err)
		}
	}
}
