package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-office"
backend:
  base_url: "http://backend:8000"
  ws_url: "ws://backend:8000/ws"
  request_timeout: 3s
stream:
  reconnect_delay: 2s
command:
  debounce_window: 150ms
automation:
  mode: auto
  thresholds:
    fan:
      on: 30
      off: 27
api:
  port: 9000
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-office" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-office")
	}
	if cfg.Backend.WSURL != "ws://backend:8000/ws" {
		t.Errorf("Backend.WSURL = %q, want %q", cfg.Backend.WSURL, "ws://backend:8000/ws")
	}
	if cfg.Backend.RequestTimeout != 3*time.Second {
		t.Errorf("Backend.RequestTimeout = %v, want 3s", cfg.Backend.RequestTimeout)
	}
	if cfg.Stream.ReconnectDelay != 2*time.Second {
		t.Errorf("Stream.ReconnectDelay = %v, want 2s", cfg.Stream.ReconnectDelay)
	}
	if cfg.Command.DebounceWindow != 150*time.Millisecond {
		t.Errorf("Command.DebounceWindow = %v, want 150ms", cfg.Command.DebounceWindow)
	}
	if cfg.Automation.Mode != "auto" {
		t.Errorf("Automation.Mode = %q, want auto", cfg.Automation.Mode)
	}
	if got := cfg.Automation.Thresholds["fan"]; got.On != 30 || got.Off != 27 {
		t.Errorf("Automation.Thresholds[fan] = %+v, want {30 27}", got)
	}
	// Untouched sections keep their defaults.
	if cfg.Stream.SendBuffer != 64 {
		t.Errorf("Stream.SendBuffer = %d, want default 64", cfg.Stream.SendBuffer)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Stream.ReconnectDelay != 5*time.Second {
		t.Errorf("Stream.ReconnectDelay = %v, want 5s", cfg.Stream.ReconnectDelay)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "http scheme for push channel",
			mutate:  func(c *Config) { c.Backend.WSURL = "http://backend/ws" },
			wantErr: true,
		},
		{
			name:    "zero reconnect delay",
			mutate:  func(c *Config) { c.Stream.ReconnectDelay = 0 },
			wantErr: true,
		},
		{
			name:    "unknown automation mode",
			mutate:  func(c *Config) { c.Automation.Mode = "schedule" },
			wantErr: true,
		},
		{
			name:    "mode is case insensitive",
			mutate:  func(c *Config) { c.Automation.Mode = "AUTO" },
			wantErr: false,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.API.JWTSecret = "short" },
			wantErr: true,
		},
		{
			name:    "enabled journal without path",
			mutate:  func(c *Config) { c.Database.Enabled = true; c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "enabled influx without bucket",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.URL = "http://influx:8086" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("OFFICESYNC_BACKEND_BASE_URL", "http://api.example.com")
	t.Setenv("OFFICESYNC_BACKEND_WS_URL", "wss://api.example.com/ws")
	t.Setenv("OFFICESYNC_AUTOMATION_MODE", "auto")
	t.Setenv("OFFICESYNC_MQTT_HOST", "mqtt.example.com")
	t.Setenv("OFFICESYNC_MQTT_PASSWORD", "testpass")
	t.Setenv("OFFICESYNC_API_PORT", "9100")
	t.Setenv("OFFICESYNC_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Backend.BaseURL != "http://api.example.com" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.WSURL != "wss://api.example.com/ws" {
		t.Errorf("Backend.WSURL = %q", cfg.Backend.WSURL)
	}
	if cfg.Automation.Mode != "auto" {
		t.Errorf("Automation.Mode = %q", cfg.Automation.Mode)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q", cfg.MQTT.Auth.Password)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("OFFICESYNC_API_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want default 8090", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Stream.ReconnectDelay != 5*time.Second {
		t.Errorf("defaultConfig Stream.ReconnectDelay = %v, want 5s", cfg.Stream.ReconnectDelay)
	}
	if cfg.Command.DebounceWindow != 300*time.Millisecond {
		t.Errorf("defaultConfig Command.DebounceWindow = %v, want 300ms", cfg.Command.DebounceWindow)
	}
	if cfg.Automation.Mode != "manual" {
		t.Errorf("defaultConfig Automation.Mode = %q, want manual", cfg.Automation.Mode)
	}
	if cfg.Database.Enabled {
		t.Error("defaultConfig should not enable the journal")
	}
}
