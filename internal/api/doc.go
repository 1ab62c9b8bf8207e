// Package api implements the local HTTP API and WebSocket hub for UI clients.
//
// This package provides:
//   - REST endpoints over the stores (rooms, devices, notifications)
//   - Command endpoints routed through the command dispatcher
//   - Automation mode, threshold and history endpoints
//   - WebSocket hub relaying store change events and automation reports
//   - Middleware stack (request ID, logging, recovery, CORS, optional JWT)
//
// # Architecture
//
// The server sits between UI collaborators and the process-scoped stores.
// Reads are served straight from the stores; writes go through the
// dispatcher, which updates the stores optimistically and forwards the
// command to the backend. Store events flow back to WebSocket clients via
// the Bus.
//
// # Security
//
// When api.jwt_secret is set, every route except /api/v1/health and /metrics
// requires an HS256 bearer token. WebSocket clients that cannot set headers
// pass the token as the "token" query parameter.
//
// # Graceful Degradation
//
// The server runs without the backend connection: reads and WebSocket
// relays keep working, commands report that they were not delivered.
package api
