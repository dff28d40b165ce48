// Package server provides the HTTP server for the message board.
//
// This package is internal to msgboard and handles all HTTP concerns:
//
//   - REST API: list, post, like and dislike at "/messages", "/like", "/dislike"
//   - WebSocket: live message events at "/ws"
//   - Server-Sent Events: the same events at "/api/sse"
//   - Dashboard serving: the embedded HTML page at "/"
//   - Operations: "/healthz" and Prometheus "/metrics"
//
// Handlers mutate the store first and then publish the resulting message
// through a [Broadcaster]. Push handlers register a sink with the
// broadcaster on connect and deregister it exactly once when the
// connection ends.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
