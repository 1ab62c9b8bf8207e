package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/history"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/config"
	"github.com/alph853/IoT-smartOffice/internal/store"
	"github.com/alph853/IoT-smartOffice/internal/stream"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Commander routes user intents. *command.Dispatcher implements it.
type Commander interface {
	SetActuatorState(ctx context.Context, actuatorID int, on bool) error
	SetLightColor(ctx context.Context, actuatorID int, color string) error
	SetMode(ctx context.Context, actuatorID int, mode string) error
	EnableMCU(ctx context.Context, mcuID int) error
	DisableMCU(ctx context.Context, mcuID int) error
	UpdateMCU(ctx context.Context, mcu domain.MCU) error
	MarkAsRead(ctx context.Context, id int) error
	MarkAllAsRead(ctx context.Context) error
	DeleteAllNotifications(ctx context.Context) error
}

// Automation exposes the automation controller. *automation.Controller
// implements it.
type Automation interface {
	Mode() automation.Mode
	SetMode(ctx context.Context, mode automation.Mode) []automation.Transition
	Thresholds() automation.Thresholds
	Readings(roomID int) automation.Readings
}

// Stream exposes the event stream client. *stream.Client implements it.
type Stream interface {
	State() stream.State
	SetUIReady()
	UIReady() bool
	PendingNotifications() int
	HandleMessage(payload []byte)
}

// Journal reads the command and transition history. *history.Journal
// implements it.
type Journal interface {
	RecentTransitions(ctx context.Context, limit int) ([]history.TransitionEntry, error)
	RecentCommands(ctx context.Context, limit int) ([]history.CommandEntry, error)
}

// TelemetryHandler accepts gateway telemetry. *telemetry.Ingester implements it.
type TelemetryHandler interface {
	Handle(topic string, payload []byte) error
}

// ConnectionChecker reports whether an optional connection is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     Logger
	Stores     *store.Set
	Commands   Commander
	Automation Automation
	Stream     Stream

	// Optional collaborators; nil disables the routes that need them.
	Journal   Journal
	Telemetry TelemetryHandler
	MQTT      ConnectionChecker
	InfluxDB  ConnectionChecker

	// Metrics serves GET /metrics. Nil disables the route.
	Metrics http.Handler

	// Hub, if set, is used instead of a hub owned by the server.
	Hub *Hub

	Version string
}

// Server is the local HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     Logger
	stores     *store.Set
	commands   Commander
	automation Automation
	stream     Stream
	journal    Journal
	telemetry  TelemetryHandler
	mqtt       ConnectionChecker
	influx     ConnectionChecker
	metrics    http.Handler
	version    string
	startTime  time.Time

	hub         *Hub
	externalHub bool

	mu     sync.Mutex
	server *http.Server
	addr   string
	relay  string
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Stores == nil {
		return nil, fmt.Errorf("stores are required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("command dispatcher is required")
	}
	if deps.Automation == nil {
		return nil, fmt.Errorf("automation controller is required")
	}
	if deps.Stream == nil {
		return nil, fmt.Errorf("stream client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     logger,
		stores:     deps.Stores,
		commands:   deps.Commands,
		automation: deps.Automation,
		stream:     deps.Stream,
		journal:    deps.Journal,
		telemetry:  deps.Telemetry,
		mqtt:       deps.MQTT,
		influx:     deps.InfluxDB,
		metrics:    deps.Metrics,
		version:    deps.Version,
		startTime:  time.Now(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, logger)
	}
	return s, nil
}

// Hub returns the WebSocket hub, for wiring it as an automation Reporter.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router. Exposed for tests and for embedding the API
// in another server.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub (unless injected), subscribes the hub to store
// events and launches the HTTP listener in a background goroutine. The
// listener is bound before Start returns, so a port of 0 is resolved by Addr.
//
// Returns:
//   - error: If the listener cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("binding API listener: %w", err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	s.relay = s.hub.RelayStoreEvents(s.stores)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	s.addr = ln.Addr().String()

	srv := s.server
	go func() {
		s.logger.Info("API server listening", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	relay := s.relay
	s.server = nil
	s.addr = ""
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if relay != "" {
		s.stores.Bus.Unsubscribe(relay)
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
