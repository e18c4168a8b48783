// ABOUTME: HTTP API handlers for the query gateway
// ABOUTME: Root metadata, health, query, and diagnostic endpoints

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/2389/sibyl-gateway/internal/store"
)

// diagnosticQuestion is the canned question used by /test-local-pattern.
const diagnosticQuestion = "Hello, can you help me with product questions?"

// answerExcerptLen bounds the answer text kept in the query log.
const answerExcerptLen = 500

// QueryRequest is the JSON request body for POST /query.
type QueryRequest struct {
	Question string `json:"question"`
}

// Source is a reference citation attached to an answer. Citation extraction
// is not implemented; the field exists so the response shape is stable and
// is always an empty list today.
type Source struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// QueryResponse is the JSON response body for POST /query.
type QueryResponse struct {
	Response string   `json:"response"`
	Status   string   `json:"status"`
	Sources  []Source `json:"sources"`
}

// RootResponse is the JSON response for GET /.
type RootResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	AgentReady  bool   `json:"agent_ready"`
	RunnerReady bool   `json:"runner_ready"`
	Model       string `json:"model"`
	DataStore   string `json:"data_store"`
	Note        string `json:"note"`
}

// ComponentHealth reports per-handle presence for GET /health.
type ComponentHealth struct {
	Agent  bool `json:"agent"`
	Runner bool `json:"runner"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status     string          `json:"status"`
	InitStatus string          `json:"init_status"`
	Components ComponentHealth `json:"components"`
}

// DiagnosticResponse is the JSON response for GET /test-local-pattern.
type DiagnosticResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Response string `json:"response,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendDetailError writes a JSON error response with a detail field.
func (g *Gateway) sendDetailError(w http.ResponseWriter, status int, detail string) {
	g.writeJSON(w, status, map[string]string{"detail": detail})
}

// handleRoot handles GET / with static metadata plus the readiness state.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	agentReady, runnerReady := g.app.Handles()
	g.writeJSON(w, http.StatusOK, RootResponse{
		Message:     "sibyl-gateway query API",
		Status:      g.app.StateString(),
		AgentReady:  agentReady,
		RunnerReady: runnerReady,
		Model:       g.config.Engine.Model,
		DataStore:   g.config.Engine.DataStoreID,
		Note:        "retrieval and inference are delegated to the managed engine",
	})
}

// handleHealth handles GET /health. Healthy means initialization completed;
// every other state, including initializing and failed, is unhealthy.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := "unhealthy"
	if g.app.Ready() {
		status = "healthy"
	}

	agentReady, runnerReady := g.app.Handles()
	g.writeJSON(w, http.StatusOK, HealthResponse{
		Status:     status,
		InitStatus: g.app.StateString(),
		Components: ComponentHealth{Agent: agentReady, Runner: runnerReady},
	})
}

// parseQueryRequest parses a QueryRequest from the given reader. The
// question field is not validated for emptiness; the engine answers what
// it is asked.
func parseQueryRequest(r io.Reader) (*QueryRequest, error) {
	var req QueryRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	return &req, nil
}

// handleQuery handles POST /query requests.
//
// Responsibilities:
//  1. Parse JSON body
//  2. Check readiness - 503 with the current state until initialized
//  3. Run the query flow (session, message, event stream)
//  4. On failure, classify into a status bucket - still HTTP 200
//  5. Record the outcome in the query log (best effort)
func (g *Gateway) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseQueryRequest(r.Body)
	if err != nil {
		g.sendDetailError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !g.app.Ready() {
		g.sendDetailError(w, http.StatusServiceUnavailable, "Service not ready: "+g.app.StateString())
		return
	}

	g.logger.Info("processing query", "question", req.Question)

	start := time.Now()
	var resp QueryResponse
	text, err := g.runQuery(r.Context(), queryUser, req.Question)
	if err != nil {
		g.logger.Error("query failed", "error", err)
		resp = errorResponse(err)
	} else {
		resp = QueryResponse{Response: text, Status: "success", Sources: []Source{}}
	}

	g.recordQuery(r.Context(), req.Question, queryUser, resp, time.Since(start))
	g.writeJSON(w, http.StatusOK, resp)
}

// recordQuery appends the outcome to the query log. Audit failures are
// logged and never surfaced to the caller.
func (g *Gateway) recordQuery(ctx context.Context, question, userID string, resp QueryResponse, elapsed time.Duration) {
	if g.store == nil {
		return
	}

	rec := &store.QueryRecord{
		Question:   question,
		Status:     resp.Status,
		Answer:     truncate(resp.Response, answerExcerptLen),
		UserID:     userID,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := g.store.AppendQuery(ctx, rec); err != nil {
		g.logger.Warn("failed to record query", "error", err)
	}
}

// handleTestPattern handles GET /test-local-pattern, a diagnostic that
// replays the query flow with a canned question. It returns its own error
// envelope rather than the query endpoint's buckets.
func (g *Gateway) handleTestPattern(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !g.app.Ready() {
		g.writeJSON(w, http.StatusOK, map[string]string{"error": "Agent not initialized"})
		return
	}

	text, err := g.runQuery(r.Context(), diagnosticUser, diagnosticQuestion)
	if err != nil {
		g.logger.Error("diagnostic query failed", "error", err)
		g.writeJSON(w, http.StatusOK, DiagnosticResponse{
			Status:  "error",
			Message: "Local pattern test failed: " + truncate(err.Error(), 200),
		})
		return
	}

	display := text
	if len(display) > 200 {
		display = display[:200] + "..."
	}
	g.writeJSON(w, http.StatusOK, DiagnosticResponse{
		Status:   "success",
		Message:  "Local pattern test successful",
		Response: display,
	})
}
