package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/store"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// backendServer is a WebSocket endpoint that counts sessions and lets the
// test push frames to, or drop, the latest session.
type backendServer struct {
	srv      *httptest.Server
	upgrades atomic.Int32

	mu       sync.Mutex
	conn     *websocket.Conn
	received [][]byte
}

func newBackendServer(t *testing.T) *backendServer {
	t.Helper()
	b := &backendServer{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.upgrades.Add(1)
		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			b.mu.Lock()
			b.received = append(b.received, data)
			b.mu.Unlock()
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backendServer) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *backendServer) push(t *testing.T, frame string) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		t.Fatal("no backend session")
	}
	if err := b.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("push: %v", err)
	}
}

// drop closes the latest session without a close frame.
func (b *backendServer) drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.UnderlyingConn().Close()
		b.conn = nil
	}
}

func (b *backendServer) receivedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.received)
}

type mockSnapshotter struct {
	rooms []domain.Room
	notes []domain.Notification
	err   error
	calls atomic.Int32
}

func (m *mockSnapshotter) ListOffices(context.Context) ([]domain.Room, error) {
	m.calls.Add(1)
	return m.rooms, m.err
}

func (m *mockSnapshotter) ListNotifications(context.Context) ([]domain.Notification, error) {
	return m.notes, m.err
}

type mockObserver struct {
	mu         sync.Mutex
	states     []State
	messages   []string
	reconnects int
}

func (o *mockObserver) ObserveState(s State) {
	o.mu.Lock()
	o.states = append(o.states, s)
	o.mu.Unlock()
}

func (o *mockObserver) ObserveMessage(method, result string) {
	o.mu.Lock()
	o.messages = append(o.messages, method+"/"+result)
	o.mu.Unlock()
}

func (o *mockObserver) ObserveReconnect() {
	o.mu.Lock()
	o.reconnects++
	o.mu.Unlock()
}

func (o *mockObserver) reconnectCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reconnects
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestClient(t *testing.T, url string) (*Client, *store.Set) {
	t.Helper()
	stores := store.New(nil)
	stores.Start()
	t.Cleanup(stores.Close)

	stores.Rooms.Add(domain.Room{ID: 1, Name: "Lab", Building: "H6", Room: "101"})

	c := NewClient(Options{
		URL:            url,
		ReconnectDelay: 30 * time.Millisecond,
		UIReady:        true,
	}, stores, nil)
	t.Cleanup(c.Close)
	return c, stores
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestClient_ConnectIsIdempotent(t *testing.T) {
	backend := newBackendServer(t)
	c, _ := newTestClient(t, backend.url())

	c.Connect()
	c.Connect()
	waitFor(t, "connected", c.IsConnected)
	c.Connect()

	time.Sleep(50 * time.Millisecond)
	if got := backend.upgrades.Load(); got != 1 {
		t.Errorf("backend sessions = %d, want 1", got)
	}
}

func TestClient_ReconnectsAfterFailure(t *testing.T) {
	backend := newBackendServer(t)
	c, _ := newTestClient(t, backend.url())
	obs := &mockObserver{}
	c.SetObserver(obs)

	c.Connect()
	waitFor(t, "first session", func() bool { return backend.upgrades.Load() == 1 && c.IsConnected() })

	backend.drop()

	waitFor(t, "second session", func() bool { return backend.upgrades.Load() == 2 })
	waitFor(t, "reconnected", c.IsConnected)

	time.Sleep(100 * time.Millisecond)
	if got := backend.upgrades.Load(); got != 2 {
		t.Errorf("backend sessions = %d, want exactly 2", got)
	}
	if got := obs.reconnectCount(); got != 1 {
		t.Errorf("reconnects observed = %d, want 1", got)
	}
}

func TestClient_DisconnectStopsReconnect(t *testing.T) {
	backend := newBackendServer(t)
	c, _ := newTestClient(t, backend.url())

	c.Disconnect() // not connected: must be safe

	c.Connect()
	waitFor(t, "connected", c.IsConnected)

	c.Disconnect()
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", c.State())
	}

	time.Sleep(100 * time.Millisecond)
	if got := backend.upgrades.Load(); got != 1 {
		t.Errorf("backend sessions = %d, want 1 (no reconnect after Disconnect)", got)
	}
}

func TestClient_DialFailureSchedulesRetry(t *testing.T) {
	c, _ := newTestClient(t, "ws://127.0.0.1:1/ws")
	obs := &mockObserver{}
	c.SetObserver(obs)

	c.Connect()
	waitFor(t, "retry", func() bool { return obs.reconnectCount() >= 1 })

	c.Close()
	if c.State() != StateDisconnected {
		t.Errorf("State() after Close = %v", c.State())
	}
	c.Connect()
	if c.State() != StateDisconnected {
		t.Error("Connect after Close changed state")
	}
}

func TestClient_SendWhenDisconnectedTriggersConnect(t *testing.T) {
	backend := newBackendServer(t)
	c, _ := newTestClient(t, backend.url())

	err := c.SendMessage(MethodSetFanState, map[string]any{"actuator_id": 1, "state": true})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("SendMessage() error = %v, want ErrNotConnected", err)
	}

	waitFor(t, "connected", c.IsConnected)

	if err := c.SendMessage(MethodSetFanState, map[string]any{"actuator_id": 1, "state": true}); err != nil {
		t.Fatalf("SendMessage() after connect error = %v", err)
	}
	waitFor(t, "frame received", func() bool { return backend.receivedCount() == 1 })

	backend.mu.Lock()
	frame := backend.received[0]
	backend.mu.Unlock()

	env, err := Decode(frame)
	if err != nil || env.Method != MethodSetFanState {
		t.Errorf("received %s, err %v", frame, err)
	}
}

func TestClient_PushedFramesReachStores(t *testing.T) {
	backend := newBackendServer(t)
	c, stores := newTestClient(t, backend.url())

	c.Connect()
	waitFor(t, "connected", c.IsConnected)

	backend.push(t, `{"method":"newDeviceConnected","params":{"device":{"id":7,"name":"Node","office_id":1,"status":"online",
		"actuators":[{"id":70,"name":"Fan","type":"fan"}],"sensors":[{"id":71,"name":"T","type":"temperature"}]}}}`)

	waitFor(t, "mcu ingested", func() bool {
		_, _, ok := stores.Rooms.FindMCU(7)
		return ok
	})
	mcu, roomID, _ := stores.Rooms.FindMCU(7)
	if roomID != 1 || mcu.Location != "O1-H6-101" {
		t.Errorf("mcu = %+v in room %d", mcu, roomID)
	}
	if stores.Actuators.Count() != 1 || stores.Sensors.Count() != 1 {
		t.Errorf("actuators=%d sensors=%d, want 1/1", stores.Actuators.Count(), stores.Sensors.Count())
	}
}

func TestClient_ResyncOnConnect(t *testing.T) {
	backend := newBackendServer(t)
	stores := store.New(nil)
	stores.Start()
	t.Cleanup(stores.Close)

	snap := &mockSnapshotter{
		rooms: []domain.Room{{ID: 3, Name: "Office", MCUs: []domain.MCU{{ID: 30, OfficeID: 3}}}},
		notes: []domain.Notification{{ID: 1, Title: "old"}, {ID: 2, Title: "new"}},
	}
	c := NewClient(Options{URL: backend.url(), ResyncOnConnect: true, UIReady: true}, stores, nil)
	t.Cleanup(c.Close)
	c.SetSnapshotter(snap)

	c.Connect()
	waitFor(t, "resync", func() bool { return stores.Rooms.Count() == 1 && stores.Notifications.Count() == 2 })

	if got := stores.Notifications.All(); got[0].ID != 2 {
		t.Errorf("notifications after resync = %+v, want newest first", got)
	}
}

func TestClient_ResyncWithoutSource(t *testing.T) {
	c, _ := newTestClient(t, "ws://unused")
	if err := c.Resync(context.Background()); !errors.Is(err, ErrNoSnapshotter) {
		t.Errorf("Resync() error = %v, want ErrNoSnapshotter", err)
	}
}

func TestClient_ResyncKeepsLocalNotifications(t *testing.T) {
	c, stores := newTestClient(t, "ws://unused")
	c.SetSnapshotter(&mockSnapshotter{notes: []domain.Notification{{ID: 5}}})

	c.HandleMessage([]byte("Welcome to the gateway"))
	if err := c.Resync(context.Background()); err != nil {
		t.Fatalf("Resync() error = %v", err)
	}

	got := stores.Notifications.All()
	if len(got) != 2 || got[0].ID != 5 || got[1].ID >= 0 {
		t.Errorf("notifications = %+v, want server then local", got)
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateFailed:       "failed",
		State(42):         "unknown",
	} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestEncode(t *testing.T) {
	frame, err := Encode(MethodSetMode, map[string]any{"actuator_id": 4, "mode": "auto"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var got struct {
		Method string         `json:"method"`
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Method != MethodSetMode || got.Params["mode"] != "auto" || got.Params["actuator_id"] != float64(4) {
		t.Errorf("Encode() = %s", frame)
	}
}
