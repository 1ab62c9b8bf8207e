package stream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/store"
)

// Defaults applied by NewClient to zero Options fields.
const (
	DefaultReconnectDelay   = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSendBuffer       = 64

	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
)

// State is the connection state of a Client.
type State int

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dialer opens the WebSocket. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Snapshotter fetches the full backend state used for resynchronisation.
// The backend REST client satisfies it.
type Snapshotter interface {
	ListOffices(ctx context.Context) ([]domain.Room, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
}

// Observer is told about connection and message outcomes. Implementations
// must be fast and must not call back into the Client.
type Observer interface {
	ObserveState(s State)
	ObserveMessage(method, result string)
	ObserveReconnect()
}

// Message outcomes reported to the Observer.
const (
	ResultApplied   = "applied"
	ResultBuffered  = "buffered"
	ResultDropped   = "dropped"
	ResultIgnored   = "ignored"
	ResultMalformed = "malformed"
	ResultPanic     = "panic"
)

// Options configures a Client.
type Options struct {
	// URL is the backend push endpoint, e.g. ws://host:8000/ws.
	URL string

	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration

	// PingInterval enables keep-alive pings when positive. The read side
	// never times out.
	PingInterval time.Duration

	SendBuffer     int
	MaxMessageSize int64

	// ResyncOnConnect runs Resync after each successful connect when a
	// Snapshotter is set.
	ResyncOnConnect bool

	// UIReady starts the client with the early-notification buffer disabled.
	UIReady bool

	// Dialer overrides the default gorilla dialer.
	Dialer Dialer
}

// Client keeps the local stores in sync with the backend push channel.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	opts   Options
	dialer Dialer
	stores *store.Set
	logger Logger

	// ctx is cancelled by Close and bounds dials and resyncs.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	send    chan []byte
	session uint64 // bumped on every Connect, Disconnect and Close
	timer   *time.Timer
	closed  bool

	hookMu      sync.RWMutex
	observer    Observer
	snapshotter Snapshotter

	notifyMu sync.Mutex
	uiReady  bool
	pending  []domain.Notification
}

// NewClient creates a disconnected Client.
//
// Parameters:
//   - opts: connection options; zero durations and sizes take defaults
//   - stores: the shared store set updated by inbound frames
//   - logger: Logger instance (nil for no logging)
func NewClient(opts Options, stores *store.Set, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		dialer:  dialer,
		stores:  stores,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		uiReady: opts.UIReady,
	}
}

// SetObserver installs an Observer. Pass nil to remove it.
func (c *Client) SetObserver(o Observer) {
	c.hookMu.Lock()
	c.observer = o
	c.hookMu.Unlock()
}

// SetSnapshotter installs the source used by Resync.
func (c *Client) SetSnapshotter(s Snapshotter) {
	c.hookMu.Lock()
	c.snapshotter = s
	c.hookMu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether frames can be sent and received.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect starts opening the connection and returns immediately.
// It is a no-op while connecting or connected, and after Close.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed || c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.session++
	gen := c.session
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.dial(gen)
}

// Disconnect closes the connection and cancels any pending reconnect.
// Safe to call when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.session++
	wasLive := c.conn != nil
	c.dropConnLocked()
	if c.state != StateDisconnected {
		c.setStateLocked(StateDisconnected)
	}
	c.mu.Unlock()

	if wasLive {
		c.logger.Info("event stream disconnected", "url", c.opts.URL)
	}
}

// Close disconnects and refuses every later Connect.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.Disconnect()
	c.cancel()
}

// Send queues a frame for the live connection.
//
// With no live connection, Send triggers Connect and returns
// ErrNotConnected: delivery is best effort and nothing is queued for later.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateConnected {
		c.mu.Unlock()
		c.Connect()
		return ErrNotConnected
	}
	select {
	case c.send <- frame:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrSendBufferFull
	}
}

// SendMessage encodes an envelope and sends it.
func (c *Client) SendMessage(method string, params any) error {
	frame, err := Encode(method, params)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Resync replaces rooms, sensors, actuators and notifications with a full
// snapshot from the backend.
func (c *Client) Resync(ctx context.Context) error {
	c.hookMu.RLock()
	snap := c.snapshotter
	c.hookMu.RUnlock()
	if snap == nil {
		return ErrNoSnapshotter
	}

	rooms, err := snap.ListOffices(ctx)
	if err != nil {
		return err
	}
	notes, err := snap.ListNotifications(ctx)
	if err != nil {
		return err
	}

	c.stores.LoadRooms(rooms)
	c.replaceNotifications(notes)

	c.logger.Info("stores resynchronised", "rooms", len(rooms), "notifications", len(notes))
	return nil
}

func (c *Client) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.HandshakeTimeout)
	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	cancel()
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // handshake response body carries nothing we need
	}
	if err != nil {
		c.fail(gen, err)
		return
	}

	c.mu.Lock()
	if c.session != gen || c.closed {
		c.mu.Unlock()
		conn.Close() //nolint:errcheck // superseded connection
		return
	}
	if c.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(c.opts.MaxMessageSize)
	}
	send := make(chan []byte, c.opts.SendBuffer)
	c.conn = conn
	c.send = send
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.logger.Info("event stream connected", "url", c.opts.URL)

	go c.writePump(gen, conn, send)
	go c.readPump(gen, conn)

	if c.opts.ResyncOnConnect {
		go c.resyncAfterConnect()
	}
}

func (c *Client) resyncAfterConnect() {
	c.hookMu.RLock()
	hasSource := c.snapshotter != nil
	c.hookMu.RUnlock()
	if !hasSource {
		return
	}
	if err := c.Resync(c.ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("resync after connect failed", "error", err)
	}
}

func (c *Client) readPump(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.closedByPeer(gen)
				return
			}
			c.fail(gen, err)
			return
		}
		c.HandleMessage(data)
	}
}

func (c *Client) writePump(gen uint64, conn *websocket.Conn, send <-chan []byte) {
	var tick <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // best-effort deadline
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.fail(gen, err)
				return
			}
		case <-tick:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.fail(gen, err)
				return
			}
		}
	}
}

// fail tears down session gen and schedules one reconnect.
// Failures of superseded or already failed sessions are ignored.
func (c *Client) fail(gen uint64, err error) {
	c.mu.Lock()
	if c.session != gen || c.closed || c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	c.dropConnLocked()
	c.setStateLocked(StateFailed)
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.logger.Warn("event stream failed, reconnect scheduled",
		"url", c.opts.URL,
		"delay", c.opts.ReconnectDelay,
		"error", err,
	)
}

// closedByPeer handles an orderly close from the backend.
func (c *Client) closedByPeer(gen uint64) {
	c.mu.Lock()
	if c.session != gen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.dropConnLocked()
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.logger.Info("event stream closed by backend", "url", c.opts.URL)
}

func (c *Client) scheduleReconnectLocked() {
	if c.timer != nil {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.mu.Lock()
		if c.timer != t {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()

		c.observeReconnect()
		c.Connect()
	})
	c.timer = t
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) dropConnLocked() {
	if c.conn != nil {
		c.conn.Close() //nolint:errcheck // connection is being discarded
		c.conn = nil
	}
	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}

func (c *Client) setStateLocked(s State) {
	c.state = s
	c.hookMu.RLock()
	o := c.observer
	c.hookMu.RUnlock()
	if o != nil {
		o.ObserveState(s)
	}
}

func (c *Client) observeMessage(method, result string) {
	c.hookMu.RLock()
	o := c.observer
	c.hookMu.RUnlock()
	if o != nil {
		o.ObserveMessage(method, result)
	}
}

func (c *Client) observeReconnect() {
	c.hookMu.RLock()
	o := c.observer
	c.hookMu.RUnlock()
	if o != nil {
		o.ObserveReconnect()
	}
}
