package msgboard

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startBoard runs b in the background and returns its base URL once it is
// listening. The board is stopped when the test ends.
func startBoard(t *testing.T, opts ...Option) string {
	t.Helper()

	opts = append([]Option{WithHost("127.0.0.1"), WithPort(0), WithLogger(discardLogger())}, opts...)
	b, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("Start() did not return after context cancellation")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := b.Addr(); addr != "" {
			return "http://" + addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("board did not start listening")
	return ""
}

// TestStart_BlocksUntilContextCancelled verifies that Start blocks until the
// provided context is cancelled.
func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	b, err := New(WithHost("127.0.0.1"), WithPort(0), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		close(started)
		done <- b.Start(ctx)
	}()

	// wait for Start to begin
	<-started
	time.Sleep(50 * time.Millisecond)

	// verify Start is still blocking (channel should be empty)
	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
		// expected: still blocking
	}

	cancel()

	// Start should return within reasonable time
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	if b.Addr() != "" {
		t.Errorf("Addr() = %q after shutdown, want empty", b.Addr())
	}
}

// TestStart_ReturnsImmediatelyIfContextAlreadyCancelled verifies that Start
// returns immediately if the context is already cancelled.
func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	b, err := New(WithPort(0), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- b.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return with already-cancelled context")
	}
}

func TestStart_PortInUse(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	b, err := New(
		WithHost("127.0.0.1"),
		WithPort(ln.Addr().(*net.TCPAddr).Port),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = b.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to start HTTP server") {
		t.Errorf("Start() error = %v, want wrapped server error", err)
	}
}

func TestStart_ServesAPIAndDashboard(t *testing.T) {
	base := startBoard(t, WithTitle("Team Wall"))

	resp, err := http.Get(base + "/messages")
	if err != nil {
		t.Fatalf("GET /messages failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("GET /messages = %q, want []", body)
	}

	resp, err = http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "<title>Team Wall</title>") {
		t.Errorf("dashboard missing custom title")
	}
}

func TestStart_MetricsToggle(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    int
	}{
		{"enabled", true, http.StatusOK},
		{"disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := startBoard(t, WithMetrics(tt.enabled))

			resp, err := http.Get(base + "/metrics")
			if err != nil {
				t.Fatalf("GET /metrics failed: %v", err)
			}
			_ = resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("GET /metrics status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

// TestStart_MultipleSequentialRuns verifies that a board starts empty each
// time and can be restarted after shutdown.
func TestStart_MultipleSequentialRuns(t *testing.T) {
	b, err := New(WithHost("127.0.0.1"), WithPort(0), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- b.Start(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("iteration %d: Start() returned error: %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: Start() did not return", i)
		}
	}
}

// TestStart_ConcurrentAccess verifies accessors are safe while Start runs.
func TestStart_ConcurrentAccess(t *testing.T) {
	b, err := New(WithHost("127.0.0.1"), WithPort(0), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Start(ctx)
	}()

	// concurrent calls to read accessors shouldn't race
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Addr()
			_ = b.Port()
			_ = b.Title()
		}()
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutines did not complete")
	}
}
