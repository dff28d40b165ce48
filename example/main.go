package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/msgboard"
)

const port = 8000

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// log every change as it is broadcast
	b, err := msgboard.New(
		msgboard.WithPort(port),
		msgboard.WithTitle("Demo Board"),
		msgboard.WithLogger(logger),
		msgboard.WithMessageCallback(func(m msgboard.Message) {
			logger.Info("board changed",
				"timestamp", m.Timestamp,
				"text", m.Text,
				"likes", m.Likes,
				"dislikes", m.Dislikes,
			)
		}),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   msgboard Demo                                       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8000 in your browser          ║")
	fmt.Println("  ║   A few demo messages are posted on startup           ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// seed demo traffic (see seed.go)
	go func() {
		time.Sleep(200 * time.Millisecond)
		if err := SeedDemoMessages(ctx, fmt.Sprintf("http://localhost:%d", port)); err != nil {
			logger.Warn("demo seeding failed", "error", err)
		}
	}()

	if err := b.Start(ctx); err != nil {
		slog.Error("msgboard error", "error", err)
		os.Exit(1)
	}
}
