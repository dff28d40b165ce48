package msgboard

import (
	"errors"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title          string
	host           string
	port           int
	allowedOrigins []string
	queueSize      int
	sendTimeout    time.Duration
	metricsEnabled bool
	logger         *slog.Logger
	callbacks      []func(Message)
}

// Option is a function that configures a [Board] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*boardConfig) error

// WithHost sets the interface the server binds to. Defaults to 0.0.0.0.
// An empty host binds all interfaces.
func WithHost(host string) Option {
	return func(cfg *boardConfig) error {
		cfg.host = host
		return nil
	}
}

// WithPort sets the HTTP port for the API and dashboard.
//
// Defaults to 8000 if not specified. Port 0 lets the operating system pick
// a free port; read it back with [Board.Addr] once started.
//
// Returns an error if the port is outside the range 0-65535.
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Board.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	b, err := msgboard.New(msgboard.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Message Board".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithAllowedOrigins restricts which browser origins may call the API and
// open push connections. "*" allows every origin, which is the default.
//
// Returns an error if any origin is empty.
func WithAllowedOrigins(origins ...string) Option {
	return func(cfg *boardConfig) error {
		for _, o := range origins {
			if o == "" {
				return errors.New("allowed origin cannot be empty")
			}
		}
		cfg.allowedOrigins = append(cfg.allowedOrigins, origins...)
		return nil
	}
}

// WithQueueSize sets how many events may wait for a single slow subscriber
// before further events to it are dropped. Defaults to 16.
//
// Returns an error if n is zero or negative.
func WithQueueSize(n int) Option {
	return func(cfg *boardConfig) error {
		if n <= 0 {
			return errors.New("queue size must be positive")
		}
		cfg.queueSize = n
		return nil
	}
}

// WithSendTimeout bounds a single delivery to one subscriber. A subscriber
// that does not accept an event within d misses that event but stays
// subscribed. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithSendTimeout(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("send timeout must be positive")
		}
		cfg.sendTimeout = d
		return nil
	}
}

// WithMetrics enables or disables the Prometheus /metrics endpoint.
// Enabled by default.
func WithMetrics(enabled bool) Option {
	return func(cfg *boardConfig) error {
		cfg.metricsEnabled = enabled
		return nil
	}
}

// WithMessageCallback registers a function to be called after every post,
// like and dislike, with the message as it was broadcast.
//
// Multiple callbacks may be registered by calling WithMessageCallback
// multiple times; they execute in registration order.
//
// IMPORTANT: Callbacks run on the request goroutine, after the event has
// been queued for live viewers and before the HTTP response is written.
// They may be invoked concurrently and must be non-blocking.
//
// Panics within callbacks are recovered and logged; they do not fail the
// request.
//
// Example:
//
//	b, err := msgboard.New(
//	    msgboard.WithMessageCallback(func(m msgboard.Message) {
//	        if m.Dislikes > 10 {
//	            log.Printf("unpopular: %s", m.Text)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithMessageCallback(cb func(Message)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
