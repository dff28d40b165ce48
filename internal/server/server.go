package server

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/msgboard/internal/hub"
	"github.com/jpalmerr/msgboard/internal/metrics"
	"github.com/jpalmerr/msgboard/internal/store"
)

const (
	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Message Board"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Broadcaster is the fan-out side of the board as seen by HTTP handlers.
// *hub.Hub satisfies it.
type Broadcaster interface {
	Publish(msg store.Message)
	Subscribe(sink hub.Sink) hub.Handle
	Unsubscribe(handle hub.Handle)
	Count() int
}

// Config holds the server settings.
type Config struct {
	// Host is the interface to bind. Empty binds all interfaces.
	Host string

	// Port is the TCP port. 0 lets the OS pick one (see [Server.Addr]).
	Port int

	// Title is the dashboard title (defaults to "Message Board").
	Title string

	// AllowedOrigins lists CORS origins. "*" or an empty list allows all.
	AllowedOrigins []string

	// Assets holds assets/index.html for the dashboard. May be nil.
	Assets fs.FS

	// Metrics records posts and reactions. May be nil.
	Metrics *metrics.Metrics

	// Registry is served at /metrics when non-nil.
	Registry *prometheus.Registry
}

// Server handles HTTP requests for the message board.
//
// Routes:
//   - GET /messages: all messages as JSON, in insertion order
//   - POST /messages: post a message
//   - POST /like, POST /dislike: react to a message by timestamp
//   - GET /ws: WebSocket push stream
//   - GET /api/sse: Server-Sent Events push stream
//   - GET /healthz: liveness and counts
//   - GET /metrics: Prometheus metrics (when a registry is configured)
//   - GET /: embedded dashboard
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	hub        Broadcaster
	cfg        Config
	httpServer *http.Server
	listener   net.Listener
	validate   *validator.Validate
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Handlers mutate st and then hand the result to b for fan-out. The server
// is not started until [Server.Start] is called.
func NewServer(st store.Store, b Broadcaster, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    st,
		hub:      b,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	return s
}

// Handler returns the full route tree wrapped in the CORS and request
// logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/messages", s.handleMessages)
	mux.HandleFunc("/like", s.handleLike)
	mux.HandleFunc("/dislike", s.handleDislike)
	mux.HandleFunc("/healthz", s.handleHealth)

	// push routes
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/sse", s.handleSSE)

	if s.cfg.Registry != nil {
		mux.Handle("/metrics", metrics.Handler(s.cfg.Registry))
	}

	// serve dashboard assets
	if s.cfg.Assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	return s.withRequestID(s.withCORS(mux))
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout. Push connections are closed by the cancellation.
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// which ends long-running push handlers.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before [Server.Start].
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}
