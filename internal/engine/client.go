// ABOUTME: HTTP client for the managed agent engine REST/SSE API
// ABOUTME: Agent construction, session creation, and streamed message execution

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout bounds unary engine calls when no request_timeout is
// configured. Run streams are never bounded locally.
const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response body is read into an APIError.
const maxErrorBody = 2048

// Config holds connection settings for the engine API.
type Config struct {
	BaseURL  string
	APIKey   string
	Project  string
	Location string
	Timeout  time.Duration
}

// Validate checks that the config can produce a usable client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("engine base URL is required")
	}
	return nil
}

// APIError is a non-2xx response from the engine, carrying the structured
// status code alongside the (truncated) response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("engine: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the managed agent engine over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client // unary calls, bounded by cfg.Timeout
	stream *http.Client // Run streams, unbounded
	logger *slog.Logger
}

// NewClient creates an engine client from the given config.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		stream: &http.Client{},
		logger: logger.With("component", "engine-client"),
	}, nil
}

// setHeaders applies auth and routing headers to an engine request.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.Project != "" {
		req.Header.Set("X-Engine-Project", c.cfg.Project)
	}
	if c.cfg.Location != "" {
		req.Header.Set("X-Engine-Location", c.cfg.Location)
	}
}

// apiError reads the (limited) response body and wraps it in an APIError.
func apiError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// postJSON makes a unary POST request and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// CreateAgent constructs an agent on the engine and returns its handle.
func (c *Client) CreateAgent(ctx context.Context, spec AgentSpec) (*AgentHandle, error) {
	var handle AgentHandle
	if err := c.postJSON(ctx, "/v1/agents", spec, &handle); err != nil {
		return nil, err
	}
	if handle.ID == "" {
		return nil, fmt.Errorf("engine returned an agent without an id")
	}
	c.logger.Debug("created agent", "agent_id", handle.ID, "model", spec.Model)
	return &handle, nil
}

// createSessionRequest is the body for POST /v1/sessions.
type createSessionRequest struct {
	AppName string `json:"app_name"`
	UserID  string `json:"user_id"`
}

// CreateSession opens a fresh conversation session on the engine.
func (c *Client) CreateSession(ctx context.Context, appName, userID string) (*Session, error) {
	var session Session
	req := createSessionRequest{AppName: appName, UserID: userID}
	if err := c.postJSON(ctx, "/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("engine returned a session without an id")
	}
	c.logger.Debug("created session", "session_id", session.ID, "user_id", userID)
	return &session, nil
}

// RunRequest submits one message to an agent within a session.
type RunRequest struct {
	AgentID   string  `json:"agent_id"`
	AppName   string  `json:"app_name"`
	UserID    string  `json:"user_id"`
	SessionID string  `json:"session_id"`
	Message   Content `json:"message"`
}

// Run submits a message and returns the engine's execution event stream.
// Events arrive in order on the returned channel, which is closed when the
// stream ends or ctx is canceled. The error channel carries at most one
// stream error; a Run that fails before streaming returns the error directly.
func (c *Client) Run(ctx context.Context, runReq RunRequest) (<-chan *Event, <-chan error, error) {
	payload, err := json.Marshal(runReq)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/run", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("creating run request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("calling engine: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := apiError(resp)
		_ = resp.Body.Close()
		return nil, nil, apiErr
	}

	events := make(chan *Event)
	errc := make(chan error, 1)
	go c.readEvents(ctx, resp.Body, events, errc)

	return events, errc, nil
}

// readEvents parses SSE frames from the response body and delivers them in
// order. It honors ctx cancellation so an abandoned consumer does not leak
// this goroutine or the connection.
func (c *Client) readEvents(ctx context.Context, body io.ReadCloser, events chan<- *Event, errc chan<- error) {
	defer close(events)
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)

	var dataLines []string

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()

		// Empty line signals end of frame
		if line == "" {
			if len(dataLines) > 0 {
				data := strings.Join(dataLines, "\n")
				dataLines = nil

				var ev Event
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					errc <- fmt.Errorf("parsing event data: %w", err)
					return
				}

				select {
				case events <- &ev:
				case <-ctx.Done():
					return
				}
			}
			continue
		}

		// Event type line; the engine only emits one event kind, so the
		// name is not dispatched on.
		if strings.HasPrefix(line, "event:") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			continue
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		errc <- fmt.Errorf("reading event stream: %w", err)
	}
}
