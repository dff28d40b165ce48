package msgboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/msgboard/dashboard"
	"github.com/jpalmerr/msgboard/internal/hub"
	"github.com/jpalmerr/msgboard/internal/metrics"
	"github.com/jpalmerr/msgboard/internal/server"
	"github.com/jpalmerr/msgboard/internal/store"
)

const (
	defaultHost        = "0.0.0.0"
	defaultPort        = 8000
	defaultQueueSize   = 16
	defaultSendTimeout = 5 * time.Second
)

// Message is a posted message as seen by callbacks.
type Message struct {
	// Text is the trimmed, non-empty message body.
	Text string

	// Timestamp is the creation instant in UTC, formatted as
	// "2006-01-02T15:04:05.000000". It uniquely identifies the message.
	Timestamp string

	Likes    int
	Dislikes int
}

// Board is the main orchestrator for the message store, the broadcast hub
// and the HTTP server.
//
// Board is created using [New] with functional options and started with
// [Board.Start]. The typical lifecycle is:
//
//	b, err := msgboard.New(msgboard.WithPort(8000))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
//
// Messages live in memory for the lifetime of a single Start call.
type Board struct {
	title          string
	host           string
	port           int
	allowedOrigins []string
	queueSize      int
	sendTimeout    time.Duration
	metricsEnabled bool
	logger         *slog.Logger
	callbacks      []func(Message)

	mu   sync.Mutex
	addr string
}

// New creates a new [Board] with the given options.
//
// Defaults:
//   - Host: 0.0.0.0
//   - Port: 8000
//   - Allowed origins: all
//   - Per-subscriber queue: 16 events
//   - Per-delivery timeout: 5 seconds
//   - Metrics: enabled
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		host:           defaultHost,
		port:           defaultPort,
		queueSize:      defaultQueueSize,
		sendTimeout:    defaultSendTimeout,
		metricsEnabled: true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:          cfg.title,
		host:           cfg.host,
		port:           cfg.port,
		allowedOrigins: cfg.allowedOrigins,
		queueSize:      cfg.queueSize,
		sendTimeout:    cfg.sendTimeout,
		metricsEnabled: cfg.metricsEnabled,
		logger:         logger,
		callbacks:      cfg.callbacks,
	}, nil
}

// Start serves the board until the provided context is cancelled.
//
// Start is a blocking call. It creates an empty store and hub, binds the
// HTTP server and then waits. On cancellation the server drains in-flight
// requests, push connections are closed and every subscriber is stopped.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start.
func (b *Board) Start(ctx context.Context) error {
	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	messages := store.NewMemoryStore()

	var (
		m   *metrics.Metrics
		reg *prometheus.Registry
	)
	hubOpts := []hub.Option{
		hub.WithLogger(b.logger),
		hub.WithQueueSize(b.queueSize),
		hub.WithSendTimeout(b.sendTimeout),
	}
	if b.metricsEnabled {
		reg = metrics.NewRegistry()
		m = metrics.New(reg)
		hubOpts = append(hubOpts, hub.WithObserver(m))
	}

	h := hub.New(hubOpts...)
	defer h.Close()

	pub := &publisher{Hub: h, callbacks: b.callbacks, logger: b.logger}

	httpServer := server.NewServer(messages, pub, server.Config{
		Host:           b.host,
		Port:           b.port,
		Title:          b.title,
		AllowedOrigins: b.allowedOrigins,
		Assets:         dashboard.Assets,
		Metrics:        m,
		Registry:       reg,
	}, b.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	b.mu.Lock()
	b.addr = httpServer.Addr()
	b.mu.Unlock()

	b.logger.Info("msgboard started", "addr", httpServer.Addr(), "metrics", b.metricsEnabled)

	<-ctx.Done()

	b.mu.Lock()
	b.addr = ""
	b.mu.Unlock()

	b.logger.Info("msgboard stopped")
	return nil
}

// Addr returns the address the server is listening on while [Board.Start]
// is running, or "" otherwise. Useful with WithPort(0).
func (b *Board) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr
}

// Port returns the configured HTTP port.
func (b *Board) Port() int {
	return b.port
}

// Title returns the configured dashboard title.
func (b *Board) Title() string {
	return b.title
}

// publisher fans messages out through the hub and then hands them to the
// registered callbacks.
type publisher struct {
	*hub.Hub
	callbacks []func(Message)
	logger    *slog.Logger
}

func (p *publisher) Publish(msg store.Message) {
	p.Hub.Publish(msg)

	if len(p.callbacks) == 0 {
		return
	}
	public := toPublicMessage(msg)
	for _, cb := range p.callbacks {
		invokeCallbackSafe(cb, public, p.logger)
	}
}

func toPublicMessage(msg store.Message) Message {
	return Message{
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		Likes:     msg.Likes,
		Dislikes:  msg.Dislikes,
	}
}

// invokeCallbackSafe calls a message callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Message), msg Message, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("message callback panicked",
				"panic", r,
				"timestamp", msg.Timestamp,
			)
		}
	}()
	cb(msg)
}
