package hub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/msgboard/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSink collects every payload it receives.
type recordingSink struct {
	mu       sync.Mutex
	received [][]byte
	notify   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notify: make(chan struct{}, 100)}
}

func (r *recordingSink) Send(_ context.Context, data []byte) error {
	r.mu.Lock()
	r.received = append(r.received, data)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return nil
}

func (r *recordingSink) messages(t *testing.T) []store.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Message, 0, len(r.received))
	for _, data := range r.received {
		var m store.Message
		require.NoError(t, json.Unmarshal(data, &m))
		out = append(out, m)
	}
	return out
}

func (r *recordingSink) waitFor(t *testing.T, n int) {
	t.Helper()
	timeout := time.After(time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-r.notify:
		case <-timeout:
			t.Fatalf("received %d/%d deliveries", i, n)
		}
	}
}

// countingObserver records hub outcomes.
type countingObserver struct {
	added, removed, delivered, failed, dropped atomic.Int32
}

func (c *countingObserver) SubscriberAdded()   { c.added.Add(1) }
func (c *countingObserver) SubscriberRemoved() { c.removed.Add(1) }
func (c *countingObserver) Delivered()         { c.delivered.Add(1) }
func (c *countingObserver) DeliveryFailed()    { c.failed.Add(1) }
func (c *countingObserver) DeliveryDropped()   { c.dropped.Add(1) }

var sample = store.Message{Text: "hello", Timestamp: "2024-01-01T00:00:00.000000", Likes: 2, Dislikes: 1}

func TestHub_PublishFansOut(t *testing.T) {
	h := New(WithLogger(testLogger()))
	defer h.Close()

	s1, s2 := newRecordingSink(), newRecordingSink()
	h.Subscribe(s1)
	h.Subscribe(s2)

	h.Publish(sample)

	s1.waitFor(t, 1)
	s2.waitFor(t, 1)
	assert.Equal(t, []store.Message{sample}, s1.messages(t))
	assert.Equal(t, []store.Message{sample}, s2.messages(t))
}

func TestHub_WireFormat(t *testing.T) {
	h := New(WithLogger(testLogger()))
	defer h.Close()

	sink := newRecordingSink()
	h.Subscribe(sink)
	h.Publish(sample)
	sink.waitFor(t, 1)

	sink.mu.Lock()
	raw := sink.received[0]
	sink.mu.Unlock()

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 4)
	assert.Equal(t, "hello", fields["text"])
	assert.Equal(t, "2024-01-01T00:00:00.000000", fields["timestamp"])
	assert.EqualValues(t, 2, fields["likes"])
	assert.EqualValues(t, 1, fields["dislikes"])
}

func TestHub_FailingSinkDoesNotAffectOthers(t *testing.T) {
	obs := &countingObserver{}
	h := New(WithLogger(testLogger()), WithObserver(obs))
	defer h.Close()

	failed := make(chan struct{}, 1)
	h.Subscribe(SinkFunc(func(context.Context, []byte) error {
		failed <- struct{}{}
		return errors.New("connection closed")
	}))
	healthy := newRecordingSink()
	h.Subscribe(healthy)

	assert.NotPanics(t, func() { h.Publish(sample) })

	healthy.waitFor(t, 1)
	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("failing sink was never called")
	}

	assert.Equal(t, []store.Message{sample}, healthy.messages(t))
	assert.Eventually(t, func() bool { return obs.failed.Load() == 1 }, time.Second, 10*time.Millisecond)
	// failed subscribers stay registered until their owner unsubscribes
	assert.Equal(t, 2, h.Count())
}

func TestHub_BlockedSinkDoesNotBlockPublish(t *testing.T) {
	obs := &countingObserver{}
	h := New(WithLogger(testLogger()), WithObserver(obs), WithQueueSize(2), WithSendTimeout(50*time.Millisecond))
	defer h.Close()

	// never returns until its context expires
	h.Subscribe(SinkFunc(func(ctx context.Context, _ []byte) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	healthy := newRecordingSink()
	h.Subscribe(healthy)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			h.Publish(sample)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish() blocked on a frozen subscriber")
	}

	healthy.waitFor(t, 1)
	assert.Eventually(t, func() bool { return obs.dropped.Load() > 0 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return obs.failed.Load() > 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_PerSubscriberOrder(t *testing.T) {
	h := New(WithLogger(testLogger()), WithQueueSize(64))
	defer h.Close()

	sink := newRecordingSink()
	h.Subscribe(sink)

	for i := 0; i < 10; i++ {
		h.Publish(store.Message{Text: "m", Timestamp: store.FormatTimestamp(time.Unix(int64(i), 0)), Likes: i})
	}
	sink.waitFor(t, 10)

	for i, m := range sink.messages(t) {
		assert.Equal(t, i, m.Likes)
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := New(WithLogger(testLogger()))
	defer h.Close()

	gone := newRecordingSink()
	stays := newRecordingSink()
	handle := h.Subscribe(gone)
	h.Subscribe(stays)

	h.Unsubscribe(handle)
	h.Publish(sample)

	stays.waitFor(t, 1)
	assert.Empty(t, gone.messages(t))
	assert.Equal(t, 1, h.Count())
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	obs := &countingObserver{}
	h := New(WithLogger(testLogger()), WithObserver(obs))
	defer h.Close()

	handle := h.Subscribe(newRecordingSink())

	assert.NotPanics(t, func() {
		h.Unsubscribe(handle)
		h.Unsubscribe(handle)
	})
	assert.Equal(t, 0, h.Count())
	assert.EqualValues(t, 1, obs.removed.Load())

	// unknown handle is a no-op as well
	assert.NotPanics(t, func() { h.Unsubscribe(Handle{}) })
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := New(WithLogger(testLogger()))
	defer h.Close()

	assert.NotPanics(t, func() { h.Publish(sample) })
}

func TestHub_Close(t *testing.T) {
	h := New(WithLogger(testLogger()))

	sink := newRecordingSink()
	h.Subscribe(sink)
	h.Subscribe(newRecordingSink())

	h.Close()
	assert.Equal(t, 0, h.Count())

	h.Publish(sample)
	h.Subscribe(newRecordingSink())
	assert.Equal(t, 0, h.Count())
	assert.Empty(t, sink.messages(t))

	assert.NotPanics(t, h.Close)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	h := New(WithLogger(testLogger()))
	defer h.Close()

	var wg sync.WaitGroup
	numGoroutines := 10

	// concurrent publishes
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(sample)
			}
		}()
	}

	// concurrent subscribe/unsubscribe
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle := h.Subscribe(SinkFunc(func(context.Context, []byte) error { return nil }))
			time.Sleep(10 * time.Millisecond)
			h.Unsubscribe(handle)
			h.Unsubscribe(handle)
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, h.Count())
}
