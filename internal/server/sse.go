package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// sseBufferSize is the number of events buffered between the hub and
	// the handler goroutine.
	sseBufferSize = 16
)

var errSSEClosed = errors.New("sse stream closed")

// sseSink hands hub events to the SSE handler goroutine, which owns the
// ResponseWriter.
type sseSink struct {
	events chan []byte
	done   chan struct{}
}

func newSSESink() *sseSink {
	return &sseSink{
		events: make(chan []byte, sseBufferSize),
		done:   make(chan struct{}),
	}
}

func (s *sseSink) Send(ctx context.Context, data []byte) error {
	select {
	case s.events <- data:
		return nil
	case <-s.done:
		return errSSEClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *sseSink) close() {
	close(s.done)
}

// handleSSE streams message events via Server-Sent Events.
//
// The current snapshot is sent first, then one event per publish. The
// handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would
// prevent the handler from detecting context cancellation.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so no publish falls in between;
	// clients upsert by timestamp, so a duplicate is harmless
	sink := newSSESink()
	handle := s.hub.Subscribe(sink)
	defer s.hub.Unsubscribe(handle)
	defer sink.close()

	// send initial messages (also protected by write deadline)
	for _, msg := range s.store.All() {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// flush headers even when the board is empty
	if err := rc.Flush(); err != nil {
		return
	}

	// stream updates
	for {
		select {
		case data := <-sink.events:
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
