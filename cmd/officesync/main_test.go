package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/domain"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/config"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails on an unparsable config file.
func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "site: [unclosed\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil {
		t.Fatal("run() should fail with an invalid config file")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v", err)
	}
}

// TestRun_InvalidThreshold verifies a threshold without a deadband is rejected.
func TestRun_InvalidThreshold(t *testing.T) {
	path := writeConfig(t, `
automation:
  thresholds:
    fan:
      on: 25
      off: 27
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, path)
	if err == nil || !strings.Contains(err.Error(), "automation thresholds") {
		t.Fatalf("run() error = %v, want threshold error", err)
	}
}

// TestRun_StartupAndShutdown starts with an unreachable backend and stops
// cleanly when the context ends.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	port := freePort(t)

	path := writeConfig(t, fmt.Sprintf(`
site:
  id: test-site

backend:
  base_url: "http://127.0.0.1:1"
  ws_url: "ws://127.0.0.1:1/ws"
  request_timeout: 500ms
  retry_count: 0

stream:
  reconnect_delay: 100ms
  handshake_timeout: 200ms

database:
  enabled: true
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr

api:
  host: "127.0.0.1"
  port: %d
`, filepath.Join(tmpDir, "journal.db"), port))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx, path); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "journal.db")); err != nil {
		t.Errorf("journal database not created: %v", err)
	}
}

// TestGetConfigPath verifies flag, environment and default precedence.
func TestGetConfigPath(t *testing.T) {
	t.Setenv("OFFICESYNC_CONFIG", "")
	if got := getConfigPath(""); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("OFFICESYNC_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(""); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() with env = %q", got)
	}
	if got := getConfigPath("/flag/config.yaml"); got != "/flag/config.yaml" {
		t.Errorf("getConfigPath() with flag = %q", got)
	}
}

func TestBuildThresholds(t *testing.T) {
	thresholds, err := buildThresholds(config.AutomationConfig{
		Thresholds: map[string]config.ThresholdConfig{"fan": {On: 30, Off: 27}},
	})
	if err != nil {
		t.Fatalf("buildThresholds() error = %v", err)
	}
	fan := thresholds[domain.DeviceTypeFan]
	if fan.On != 30 || fan.Off != 27 || fan.SensorType != automation.SensorTemperature {
		t.Errorf("fan threshold = %+v", fan)
	}
	if thresholds[domain.DeviceTypeAC] != automation.DefaultThresholds()[domain.DeviceTypeAC] {
		t.Error("untouched thresholds changed")
	}

	if _, err := buildThresholds(config.AutomationConfig{
		Thresholds: map[string]config.ThresholdConfig{"toaster": {On: 1, Off: 0}},
	}); err == nil {
		t.Error("unknown device type accepted")
	}
}

func TestPrintToken_RequiresSecret(t *testing.T) {
	t.Setenv("OFFICESYNC_API_JWT_SECRET", "")
	path := writeConfig(t, "site:\n  id: test-site\n")

	if err := printToken(path, "panel", time.Hour); err == nil {
		t.Error("printToken() without a secret succeeded")
	}
}
