package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/msgboard"
	"github.com/jpalmerr/msgboard/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a logger for CLI use writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or text)", format)
	}
}

// serveCmd starts the message board server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the message board server",
	Long: `Start the message board server.

The server will:
  - Load environment variables from .env if present
  - Load configuration from the given YAML file, or use defaults
  - Serve the API, the live streams and the board UI

The PORT environment variable overrides the configured port. The server
runs until interrupted (Ctrl+C) or receives SIGTERM. Messages are kept in
memory only.

Example:
  msgboard serve
  msgboard serve -c msgboard.yaml
  PORT=9000 msgboard serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
	serveCmd.Flags().String("env-file", ".env", "dotenv file to load before reading config")
	serveCmd.Flags().String("log-level", "", "override log level (debug, info, warn, error)")
}

// loadServeConfig resolves the effective configuration for serve.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// boardOptions maps a config onto library options.
func boardOptions(cfg *config.Config, logger *slog.Logger) []msgboard.Option {
	opts := []msgboard.Option{
		msgboard.WithHost(cfg.Host),
		msgboard.WithPort(cfg.Port),
		msgboard.WithLogger(logger),
		msgboard.WithQueueSize(cfg.Hub.QueueSize),
		msgboard.WithSendTimeout(cfg.Hub.SendTimeout.Duration()),
		msgboard.WithMetrics(cfg.MetricsEnabled()),
		msgboard.WithAllowedOrigins(cfg.CORS.AllowedOrigins...),
	}
	if cfg.Title != "" {
		opts = append(opts, msgboard.WithTitle(cfg.Title))
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	logger.Info("starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"queue_size", cfg.Hub.QueueSize,
		"send_timeout", cfg.Hub.SendTimeout.Duration().String(),
	)

	board, err := msgboard.New(boardOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- board.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
