// OfficeSync - smart-office gateway client
//
// This is the main entry point for the OfficeSync service. It keeps a local
// replica of the smart-office backend (rooms, MCUs, sensors, actuators and
// notifications) in sync over the backend's push channel, runs the
// threshold automation against gateway telemetry, and serves a local REST
// and WebSocket API for UI clients.
//
// Optional parts (SQLite journal, MQTT telemetry, InfluxDB export) are
// enabled in the configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alph853/IoT-smartOffice/internal/api"
	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/backend"
	"github.com/alph853/IoT-smartOffice/internal/command"
	"github.com/alph853/IoT-smartOffice/internal/history"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/config"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/database"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/influxdb"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/logging"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/mqtt"
	"github.com/alph853/IoT-smartOffice/internal/metrics"
	"github.com/alph853/IoT-smartOffice/internal/store"
	"github.com/alph853/IoT-smartOffice/internal/stream"
	"github.com/alph853/IoT-smartOffice/internal/telemetry"
	"github.com/alph853/IoT-smartOffice/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often journal retention runs.
const pruneInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "configuration file (default $OFFICESYNC_CONFIG or "+defaultConfigPath+")")
	tokenSubject := flag.String("token", "", "print an API token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -token")
	flag.Parse()

	if *tokenSubject != "" {
		if err := printToken(getConfigPath(*configPath), *tokenSubject, *tokenTTL); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, getConfigPath(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: configuration file to load
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting OfficeSync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	thresholds, err := buildThresholds(cfg.Automation)
	if err != nil {
		return fmt.Errorf("automation thresholds: %w", err)
	}
	mode, err := automation.ParseMode(cfg.Automation.Mode)
	if err != nil {
		return fmt.Errorf("automation mode: %w", err)
	}

	// Local replica of the backend state
	stores := store.New(log.Component("store"))
	stores.Start()
	defer func() {
		log.Info("closing stores")
		stores.Close()
	}()

	collectors := metrics.Default()
	notifListener := collectors.TrackNotifications(stores.Notifications)
	defer stores.Notifications.RemoveListener(notifListener)

	rest := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.RequestTimeout,
		RetryCount: cfg.Backend.RetryCount,
	}, log.Component("backend"))

	streamClient := stream.NewClient(stream.Options{
		URL:              cfg.Backend.WSURL,
		ReconnectDelay:   cfg.Stream.ReconnectDelay,
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
		PingInterval:     cfg.Stream.PingInterval,
		SendBuffer:       cfg.Stream.SendBuffer,
		MaxMessageSize:   cfg.Stream.MaxMessageSize,
		ResyncOnConnect:  cfg.Stream.ResyncOnConnect,
	}, stores, log.Component("stream"))
	streamClient.SetSnapshotter(rest)
	streamClient.SetObserver(collectors)
	defer func() {
		log.Info("closing event stream")
		streamClient.Close()
	}()

	dispatcher := command.NewDispatcher(command.Config{
		DebounceWindow: cfg.Command.DebounceWindow,
	}, streamClient, rest, stores, log.Component("command"))
	dispatcher.SetObserver(collectors)

	controller := automation.NewController(automation.ControllerConfig{
		Mode:       mode,
		Thresholds: thresholds,
		Interval:   cfg.Automation.EvaluateInterval,
	}, stores.Actuators, dispatcher, log.Component("automation"))
	controller.AddReporter(collectors)

	// Journal (optional)
	var journal *history.Journal
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		journal = history.NewJournal(db.DB, log.Component("history"))
		dispatcher.SetJournal(journal)
		controller.AddReporter(journal)
		if cfg.Database.Retention > 0 {
			go pruneJournal(ctx, journal, cfg.Database.Retention, log)
		}
	} else {
		log.Info("journal disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT telemetry (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	if mqttClient != nil || influxClient != nil {
		controller.AddReporter(telemetry.NewTransitionReporter(
			publisherOrNil(mqttClient), transitionWriterOrNil(influxClient), log.Component("telemetry"),
		))
	}

	// The ingester also serves POST /telemetry/{id}, so it exists without MQTT.
	ingester := telemetry.NewIngester(stores.Rooms, controller, log.Component("telemetry"))
	ingester.SetObserver(collectors)
	if influxClient != nil {
		ingester.SetWriter(influxClient)
	}
	if mqttClient != nil {
		topic := cfg.MQTT.TelemetryTopic
		if topic == "" {
			topic = mqtt.Topics{}.AllTelemetry()
		}
		// #nosec G115 -- QoS validated to 0-2 by config
		if subErr := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), ingester.Handle); subErr != nil {
			return fmt.Errorf("subscribing to telemetry: %w", subErr)
		}
		log.Info("subscribed to telemetry", "topic", topic)
	}

	// Local API
	apiDeps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Stores:     stores,
		Commands:   dispatcher,
		Automation: controller,
		Stream:     streamClient,
		Telemetry:  ingester,
		Metrics:    promhttp.Handler(),
		Version:    version,
	}
	if journal != nil {
		apiDeps.Journal = journal
	}
	if mqttClient != nil {
		apiDeps.MQTT = mqttClient
	}
	if influxClient != nil {
		apiDeps.InfluxDB = influxClient
	}

	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	hub := apiServer.Hub()
	hub.SetOnClientCount(collectors.SetUIClients)
	controller.AddReporter(hub)

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", apiServer.Addr())

	// Initial snapshot; the stream resyncs again on every connect.
	if syncErr := streamClient.Resync(ctx); syncErr != nil {
		log.Warn("initial backend snapshot failed, continuing with empty stores", "error", syncErr)
	} else {
		log.Info("backend snapshot loaded",
			"rooms", stores.Rooms.Count(),
			"actuators", stores.Actuators.Count(),
			"notifications", stores.Notifications.Count(),
		)
	}

	streamClient.Connect()
	go controller.Run(ctx)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, MQTT, InfluxDB, database, event stream, stores.

	log.Info("OfficeSync stopped")
	return nil
}

// getConfigPath returns the configuration file path: the -config flag,
// then OFFICESYNC_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("OFFICESYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildThresholds applies configured overrides to the built-in table.
func buildThresholds(cfg config.AutomationConfig) (automation.Thresholds, error) {
	thresholds := automation.DefaultThresholds()
	for deviceType, th := range cfg.Thresholds {
		if err := thresholds.Override(deviceType, th.On, th.Off); err != nil {
			return nil, err
		}
	}
	return thresholds, nil
}

// openDatabase opens the journal database and applies the embedded migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Path)
	return db, nil
}

// pruneJournal deletes journal rows past the retention period until ctx ends.
func pruneJournal(ctx context.Context, journal *history.Journal, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		n, err := journal.Prune(ctx, retention)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			log.Warn("journal prune failed", "error", err)
		case n > 0:
			log.Info("journal pruned", "rows", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// printToken writes a signed API token for subject to stdout.
func printToken(configPath, subject string, ttl time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.API.JWTSecret == "" {
		return errors.New("api.jwt_secret is not set; the API accepts requests without a token")
	}
	token, err := api.GenerateToken(cfg.API.JWTSecret, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// publisherOrNil avoids passing a typed nil *mqtt.Client as an interface.
func publisherOrNil(c *mqtt.Client) telemetry.Publisher {
	if c == nil {
		return nil
	}
	return c
}

// transitionWriterOrNil avoids passing a typed nil *influxdb.Client as an interface.
func transitionWriterOrNil(c *influxdb.Client) telemetry.TransitionWriter {
	if c == nil {
		return nil
	}
	return c
}
