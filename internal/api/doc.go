// Package api implements the HTTP REST API and WebSocket server for the
// blueprint service.
//
// This package provides:
//   - REST endpoints for blueprint CRUD, instantiation, and URL import
//   - WebSocket hub broadcasting blueprint lifecycle events
//   - JWT service-token authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server fronts the per-domain blueprint registries. Reads go
// straight to the registry cache; mutations (add, remove, import, cache
// reset) additionally enqueue an audit entry, broadcast a lifecycle
// event to WebSocket subscribers, and announce the change over MQTT
// when an announcer is connected.
//
// # Security
//
// Every route except /health and /ws requires a bearer token signed
// with the shared service secret. Mutating routes additionally require
// the editor role. WebSocket connections authenticate with single-use
// tickets obtained from POST /auth/ws-ticket, so tokens never appear
// in URLs.
//
// # Graceful Degradation
//
// MQTT, InfluxDB, and the audit database are optional dependencies:
// the server runs without them, skipping announcements, usage points,
// and audit writes respectively.
package api
