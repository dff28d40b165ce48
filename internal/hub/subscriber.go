package hub

import (
	"context"
	"sync"
	"time"
)

// subscriber owns one sink's queue and delivery goroutine.
type subscriber struct {
	handle      Handle
	sink        Sink
	queue       chan []byte
	sendTimeout time.Duration
	hub         *Hub

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func newSubscriber(handle Handle, sink Sink, queueSize int, sendTimeout time.Duration, h *Hub) *subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscriber{
		handle:      handle,
		sink:        sink,
		queue:       make(chan []byte, queueSize),
		sendTimeout: sendTimeout,
		hub:         h,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// enqueue queues data without blocking. Returns false if the queue is full
// or the subscriber is stopping.
func (s *subscriber) enqueue(data []byte) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

// run delivers queued events in order until stopped.
func (s *subscriber) run() {
	defer close(s.done)

	for {
		select {
		case data := <-s.queue:
			s.deliver(data)
		case <-s.ctx.Done():
			return
		}
	}
}

// deliver makes one bounded Send attempt. Failures are counted, not retried.
func (s *subscriber) deliver(data []byte) {
	ctx, cancel := context.WithTimeout(s.ctx, s.sendTimeout)
	defer cancel()

	if err := s.sink.Send(ctx, data); err != nil {
		s.hub.deliveryFailed(s.handle, err)
		return
	}
	s.hub.delivered()
}

// stop cancels any in-flight Send and waits for the goroutine to exit, so
// the sink is never used after stop returns. Sinks must return promptly
// once their context is done.
func (s *subscriber) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
	})
	<-s.done
}
