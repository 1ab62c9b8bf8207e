// Package logging provides structured logging for officesync.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: JSON in production, text while developing, and the
// service and version attributes on every record.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	streamLog := logger.Component("stream")
//	streamLog.Warn("dropping malformed message", "error", err)
//
// Never log the MQTT password, the InfluxDB token or bearer tokens.
package logging
