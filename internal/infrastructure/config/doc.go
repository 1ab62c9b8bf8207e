// Package config handles loading and validating officesync configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, API JWT secret) should
//     be set via environment variables
//   - The local API binds to loopback by default; set api.jwt_secret before
//     exposing it on another interface
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Backend.WSURL)
package config
