package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jpalmerr/msgboard/internal/apperr"
	"github.com/jpalmerr/msgboard/internal/store"
)

const (
	defaultQueueSize   = 16
	defaultSendTimeout = 5 * time.Second
)

// Sink is the write side of one live viewer connection.
//
// The hub calls Send from a single goroutine per subscriber, so
// implementations need not be safe for concurrent Send calls. Send should
// honour ctx; the hub cancels it after the configured send timeout.
type Sink interface {
	Send(ctx context.Context, data []byte) error
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, data []byte) error

// Send calls f(ctx, data).
func (f SinkFunc) Send(ctx context.Context, data []byte) error {
	return f(ctx, data)
}

// Handle identifies a subscription for [Hub.Unsubscribe].
type Handle = uuid.UUID

// Observer receives delivery outcomes. It is satisfied by the metrics
// package; a nil Observer disables reporting.
type Observer interface {
	SubscriberAdded()
	SubscriberRemoved()
	Delivered()
	DeliveryFailed()
	DeliveryDropped()
}

// Hub fans out every published message to all current subscribers.
//
// Each subscriber owns a bounded queue drained by its own goroutine, so a
// slow or dead connection only ever delays itself. Delivery is best-effort:
// a full queue drops the event for that subscriber, and a failed or timed
// out Send is logged and counted, never returned to the publisher. Failed
// subscribers are not removed here; the connection handler that owns the
// transport calls [Hub.Unsubscribe] when it observes the close.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Handle]*subscriber
	closed      bool

	queueSize   int
	sendTimeout time.Duration
	logger      *slog.Logger
	observer    Observer
}

// Option configures a [Hub].
type Option func(*Hub)

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver sets the delivery outcome observer.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		h.observer = o
	}
}

// WithQueueSize sets the per-subscriber queue capacity. Values below 1 are
// ignored.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithSendTimeout bounds a single Send call. Values <= 0 are ignored.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.sendTimeout = d
		}
	}
}

// New creates an empty [Hub].
func New(opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[Handle]*subscriber),
		queueSize:   defaultQueueSize,
		sendTimeout: defaultSendTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers sink and starts its delivery goroutine.
//
// The returned handle must be passed to [Hub.Unsubscribe] when the
// underlying connection closes. Subscribing after [Hub.Close] returns a
// handle whose sink never receives anything.
func (h *Hub) Subscribe(sink Sink) Handle {
	handle := uuid.New()
	sub := newSubscriber(handle, sink, h.queueSize, h.sendTimeout, h)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.cancel()
		return handle
	}
	h.subscribers[handle] = sub
	h.mu.Unlock()

	go sub.run()

	if h.observer != nil {
		h.observer.SubscriberAdded()
	}
	h.logger.Debug("subscriber added", "subscriber", handle)
	return handle
}

// Unsubscribe removes a subscriber and stops its delivery goroutine.
//
// Safe to call multiple times or with an unknown handle.
func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	sub, ok := h.subscribers[handle]
	if ok {
		delete(h.subscribers, handle)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.stop()

	if h.observer != nil {
		h.observer.SubscriberRemoved()
	}
	h.logger.Debug("subscriber removed", "subscriber", handle)
}

// Publish serializes msg once and queues it for every current subscriber.
//
// Publish never blocks on a subscriber and never reports delivery failures.
func (h *Hub) Publish(msg store.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		// a Message of plain strings and ints always encodes
		h.logger.Error("failed to encode message", "error", err, "timestamp", msg.Timestamp)
		return
	}

	// snapshot so delivery does not hold the lock
	h.mu.RLock()
	subs := lo.Values(h.subscribers)
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.enqueue(data) {
			h.deliveryDropped(sub.handle)
		}
	}
}

// Count returns the number of current subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close removes every subscriber and stops their goroutines. Subsequent
// subscriptions are ignored. Safe to call multiple times.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := lo.Values(h.subscribers)
	h.subscribers = make(map[Handle]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
		if h.observer != nil {
			h.observer.SubscriberRemoved()
		}
	}
}

func (h *Hub) delivered() {
	if h.observer != nil {
		h.observer.Delivered()
	}
}

func (h *Hub) deliveryFailed(handle Handle, err error) {
	if h.observer != nil {
		h.observer.DeliveryFailed()
	}
	h.logger.Debug("delivery failed", "subscriber", handle, "error", apperr.Delivery(err))
}

func (h *Hub) deliveryDropped(handle Handle) {
	if h.observer != nil {
		h.observer.DeliveryDropped()
	}
	h.logger.Debug("delivery dropped, subscriber queue full", "subscriber", handle)
}
