// Package msgboard provides a small, embeddable real-time message board.
//
// Anyone can post a short text message, like or dislike existing messages,
// and watch the board update live. State lives in memory for the lifetime of
// the process; there are no accounts.
//
// # Quick Start
//
//	b, _ := msgboard.New(msgboard.WithPort(8000))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # HTTP API
//
//   - GET /messages: every message, oldest first
//   - POST /messages {"message": "..."}: post a message (201)
//   - POST /like, POST /dislike {"timestamp": "..."}: react to a message
//   - GET /ws: WebSocket stream, one JSON frame per change
//   - GET /api/sse: Server-Sent Events stream, snapshot first
//   - GET /healthz, GET /metrics
//   - GET /: the embedded board page
//
// Messages travel as {"text", "timestamp", "likes", "dislikes"}. The
// timestamp is the creation instant at microsecond precision and doubles as
// the message identifier.
//
// # Architecture
//
//   - internal/store: the ordered message list and its timestamp index
//   - internal/hub: fan-out of changed messages to live subscribers
//   - internal/server: REST API, WebSocket and SSE transports
//   - internal/metrics: Prometheus collectors
//   - internal/client: Go client for the HTTP API
//   - dashboard: embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package msgboard
