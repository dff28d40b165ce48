// Package metrics exposes Prometheus metrics for the message board.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "msgboard"

// Reaction kinds used as the "kind" label.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Metrics holds the board's collectors. A nil *Metrics is valid and
// records nothing, so callers never need to nil-check.
type Metrics struct {
	MessagesPosted    prometheus.Counter
	Reactions         *prometheus.CounterVec
	ActiveSubscribers prometheus.Gauge
	Deliveries        *prometheus.CounterVec
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New creates and registers the board metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_posted_total",
			Help:      "Total number of messages posted.",
		}),
		Reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Total number of reactions by kind.",
		}, []string{"kind"}),
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_subscribers",
			Help:      "Number of live viewers currently subscribed.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_total",
			Help:      "Per-subscriber delivery attempts by result (delivered, failed, dropped).",
		}, []string{"result"}),
	}

	reg.MustRegister(m.MessagesPosted, m.Reactions, m.ActiveSubscribers, m.Deliveries)
	return m
}

// MessagePosted counts a successful post.
func (m *Metrics) MessagePosted() {
	if m == nil {
		return
	}
	m.MessagesPosted.Inc()
}

// Reacted counts a successful reaction of the given kind.
func (m *Metrics) Reacted(kind string) {
	if m == nil {
		return
	}
	m.Reactions.WithLabelValues(kind).Inc()
}

// SubscriberAdded implements hub.Observer.
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.ActiveSubscribers.Inc()
}

// SubscriberRemoved implements hub.Observer.
func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.ActiveSubscribers.Dec()
}

// Delivered implements hub.Observer.
func (m *Metrics) Delivered() {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues("delivered").Inc()
}

// DeliveryFailed implements hub.Observer.
func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues("failed").Inc()
}

// DeliveryDropped implements hub.Observer.
func (m *Metrics) DeliveryDropped() {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues("dropped").Inc()
}
