package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/msgboard/internal/apperr"
	"github.com/jpalmerr/msgboard/internal/store"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; a CLI talks to a single board
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
	defaultTimeout             = 10 * time.Second
)

// Client talks to a message board over its HTTP API.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so the long-lived [Client.Watch] stream is not cut short. Response bodies
// are limited to 1MB.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
	timeout    time.Duration
}

// Option configures a [Client].
type Option func(*Client)

// WithTimeout sets the per-request timeout for list, post and reactions.
// Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a [Client] for the board at baseURL, e.g. "http://localhost:8000".
//
// Returns an error if baseURL is not an absolute http or https URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("base url must include a host")
	}

	c := &Client{
		base: u,
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultTimeout,
		},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List returns every message on the board, oldest first.
func (c *Client) List(ctx context.Context) ([]store.Message, error) {
	var msgs []store.Message
	if err := c.do(ctx, http.MethodGet, "/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Post posts text and returns the created message.
func (c *Client) Post(ctx context.Context, text string) (store.Message, error) {
	var msg store.Message
	err := c.do(ctx, http.MethodPost, "/messages", map[string]string{"message": text}, &msg)
	return msg, err
}

// Like adds a like to the message identified by timestamp.
func (c *Client) Like(ctx context.Context, timestamp string) (store.Message, error) {
	return c.react(ctx, "/like", timestamp)
}

// Dislike adds a dislike to the message identified by timestamp.
func (c *Client) Dislike(ctx context.Context, timestamp string) (store.Message, error) {
	return c.react(ctx, "/dislike", timestamp)
}

func (c *Client) react(ctx context.Context, path, timestamp string) (store.Message, error) {
	var msg store.Message
	err := c.do(ctx, http.MethodPost, path, map[string]string{"timestamp": timestamp}, &msg)
	return msg, err
}

// Watch streams message events from the board's WebSocket endpoint and
// calls fn for each one, in arrival order, until ctx is cancelled or the
// connection fails.
//
// Returns nil when ctx is cancelled.
func (c *Client) Watch(ctx context.Context, fn func(store.Message)) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// unblock ReadMessage on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream closed: %w", err)
		}

		var msg store.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
		fn(msg)
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

func (c *Client) wsURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// do sends a JSON request and decodes a JSON response into out.
//
// Error responses are returned as *apperr.Error carrying the server's message,
// so callers can use apperr.IsType on them.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// responseError converts an {"error": "..."} body into a typed error.
func responseError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusBadRequest:
		return apperr.Validation(msg)
	case http.StatusNotFound:
		return apperr.NotFound(msg)
	default:
		return apperr.Internal(msg, fmt.Errorf("unexpected status %d", status))
	}
}
