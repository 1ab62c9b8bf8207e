package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for officesync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Backend    BackendConfig    `yaml:"backend"`
	Stream     StreamConfig     `yaml:"stream"`
	Command    CommandConfig    `yaml:"command"`
	Automation AutomationConfig `yaml:"automation"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// BackendConfig locates the smart-office backend.
type BackendConfig struct {
	// BaseURL is the REST root, e.g. "http://localhost:8000".
	BaseURL string `yaml:"base_url"`

	// WSURL is the push channel endpoint, e.g. "ws://localhost:8000/ws".
	WSURL string `yaml:"ws_url"`

	// RequestTimeout bounds every REST call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RetryCount is the number of retries for idempotent REST reads.
	RetryCount int `yaml:"retry_count"`
}

// StreamConfig contains event stream client settings.
type StreamConfig struct {
	ReconnectDelay   time.Duration `yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	SendBuffer       int           `yaml:"send_buffer"`
	MaxMessageSize   int64         `yaml:"max_message_size"`
	ResyncOnConnect  bool          `yaml:"resync_on_connect"`
}

// CommandConfig contains command dispatcher settings.
type CommandConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window"`
}

// AutomationConfig contains automation engine settings.
type AutomationConfig struct {
	// Mode is the initial mode: manual, auto or disabled.
	Mode string `yaml:"mode"`

	// EvaluateInterval is the periodic re-evaluation period. Zero disables the ticker.
	EvaluateInterval time.Duration `yaml:"evaluate_interval"`

	// Thresholds overrides the built-in table, keyed by device type
	// (fan, ac, ceiling_light, bulb, purifier).
	Thresholds map[string]ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig is one on/off threshold pair.
type ThresholdConfig struct {
	On  float64 `yaml:"on"`
	Off float64 `yaml:"off"`
}

// DatabaseConfig contains SQLite journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// Retention is how long journal rows are kept. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled        bool                `yaml:"enabled"`
	Broker         MQTTBrokerConfig    `yaml:"broker"`
	Auth           MQTTAuthConfig      `yaml:"auth"`
	QoS            int                 `yaml:"qos"`
	Reconnect      MQTTReconnectConfig `yaml:"reconnect"`
	TelemetryTopic string              `yaml:"telemetry_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains local HTTP API server settings.
type APIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	JWTSecret string           `yaml:"jwt_secret"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains settings for the UI-facing WebSocket hub.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when the file does not exist
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: OFFICESYNC_SECTION_KEY
// For example: OFFICESYNC_BACKEND_BASE_URL, OFFICESYNC_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus environment only.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "office-001",
			Name: "Smart Office",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			WSURL:          "ws://localhost:8000/ws",
			RequestTimeout: 10 * time.Second,
			RetryCount:     2,
		},
		Stream: StreamConfig{
			ReconnectDelay:   5 * time.Second,
			HandshakeTimeout: 10 * time.Second,
			PingInterval:     30 * time.Second,
			SendBuffer:       64,
			MaxMessageSize:   1 << 20,
			ResyncOnConnect:  true,
		},
		Command: CommandConfig{
			DebounceWindow: 300 * time.Millisecond,
		},
		Automation: AutomationConfig{
			Mode:             "manual",
			EvaluateInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/officesync.db",
			WALMode:     true,
			BusyTimeout: 5,
			Retention:   30 * 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "officesync",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TelemetryTopic: "gateway/telemetry/+",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: OFFICESYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Backend
	if v := os.Getenv("OFFICESYNC_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("OFFICESYNC_BACKEND_WS_URL"); v != "" {
		cfg.Backend.WSURL = v
	}

	// Automation
	if v := os.Getenv("OFFICESYNC_AUTOMATION_MODE"); v != "" {
		cfg.Automation.Mode = v
	}

	// Database
	if v := os.Getenv("OFFICESYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("OFFICESYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("OFFICESYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OFFICESYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("OFFICESYNC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("OFFICESYNC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("OFFICESYNC_API_JWT_SECRET"); v != "" {
		cfg.API.JWTSecret = v
	}

	// InfluxDB
	if v := os.Getenv("OFFICESYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Backend validation
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Backend.WSURL == "" {
		errs = append(errs, "backend.ws_url is required")
	} else if !strings.HasPrefix(c.Backend.WSURL, "ws://") && !strings.HasPrefix(c.Backend.WSURL, "wss://") {
		errs = append(errs, "backend.ws_url must use ws:// or wss://")
	}
	if c.Backend.RequestTimeout <= 0 {
		errs = append(errs, "backend.request_timeout must be positive")
	}

	// Stream validation
	if c.Stream.ReconnectDelay <= 0 {
		errs = append(errs, "stream.reconnect_delay must be positive")
	}
	if c.Stream.SendBuffer < 1 {
		errs = append(errs, "stream.send_buffer must be at least 1")
	}

	if c.Command.DebounceWindow < 0 {
		errs = append(errs, "command.debounce_window must not be negative")
	}

	// Automation validation
	switch strings.ToLower(c.Automation.Mode) {
	case "manual", "auto", "disabled":
	default:
		errs = append(errs, "automation.mode must be manual, auto, or disabled")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.Retention < 0 {
		errs = append(errs, "database.retention must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// An empty secret disables auth on the loopback API; a set one must be strong.
	const minJWTSecretLength = 32
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < minJWTSecretLength {
		errs = append(errs, "api.jwt_secret must be at least 32 characters")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
