package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/store"
	"github.com/alph853/IoT-smartOffice/internal/stream"
)

func TestCollectors_Stream(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObserveState(stream.StateConnected)
	if got := testutil.ToFloat64(c.streamConnected); got != 1 {
		t.Errorf("stream_connected = %v, want 1", got)
	}
	c.ObserveState(stream.StateFailed)
	if got := testutil.ToFloat64(c.streamConnected); got != 0 {
		t.Errorf("stream_connected = %v, want 0", got)
	}

	c.ObserveMessage(stream.MethodDeviceUpdated, stream.ResultApplied)
	c.ObserveMessage(stream.MethodDeviceUpdated, stream.ResultApplied)
	c.ObserveMessage("", stream.ResultMalformed)
	if got := testutil.ToFloat64(c.streamMessages.WithLabelValues(stream.MethodDeviceUpdated, stream.ResultApplied)); got != 2 {
		t.Errorf("applied deviceUpdated = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.streamMessages.WithLabelValues("none", stream.ResultMalformed)); got != 1 {
		t.Errorf("malformed = %v, want 1", got)
	}

	c.ObserveReconnect()
	if got := testutil.ToFloat64(c.streamReconnects); got != 1 {
		t.Errorf("reconnects = %v", got)
	}
}

func TestCollectors_Counters(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ReportTransition(context.Background(), automation.Transition{DeviceType: domain.DeviceTypeFan, To: true})
	c.ObserveCommand("setFanState", "sent")
	c.ObserveTelemetry("accepted")
	c.SetUIClients(3)

	if got := testutil.ToFloat64(c.transitions.WithLabelValues("fan", "true")); got != 1 {
		t.Errorf("transitions = %v", got)
	}
	if got := testutil.ToFloat64(c.commands.WithLabelValues("setFanState", "sent")); got != 1 {
		t.Errorf("commands = %v", got)
	}
	if got := testutil.ToFloat64(c.telemetry.WithLabelValues("accepted")); got != 1 {
		t.Errorf("telemetry = %v", got)
	}
	if got := testutil.ToFloat64(c.uiClients); got != 3 {
		t.Errorf("ui_clients = %v", got)
	}
}

func TestCollectors_TrackNotifications(t *testing.T) {
	c := New(prometheus.NewRegistry())
	stores := store.New(nil)
	stores.Start()
	t.Cleanup(stores.Close)

	stores.Notifications.Add(domain.Notification{ID: 1})
	id := c.TrackNotifications(stores.Notifications)
	if got := testutil.ToFloat64(c.notificationsUnread); got != 1 {
		t.Errorf("unread = %v, want 1", got)
	}

	stores.Notifications.Add(domain.Notification{ID: 2})
	stores.Notifications.MarkRead(1)
	if err := stores.Bus.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(c.notificationsUnread); got != 1 {
		t.Errorf("unread = %v, want 1", got)
	}

	stores.Notifications.RemoveListener(id)
	stores.Notifications.Add(domain.Notification{ID: 3})
	if err := stores.Bus.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(c.notificationsUnread); got != 1 {
		t.Errorf("unread after RemoveListener = %v, want 1", got)
	}
}

func TestDefault_RegistersOnce(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned different collectors")
	}
}
