// ABOUTME: Tests for the HTTP API handlers: root, health, query, diagnostic
// ABOUTME: Uses a scripted runner to drive success, fallback, and failure envelopes

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2389/sibyl-gateway/internal/engine"
	"github.com/2389/sibyl-gateway/internal/store"
)

// mockRunner scripts the query flow: session creation, run submission,
// and the event stream.
type mockRunner struct {
	sessionErr error
	runErr     error
	streamErr  error
	events     []*engine.Event

	sessions      int
	lastUserID    string
	lastSessionID string
	lastMsg       engine.Content
}

func (m *mockRunner) CreateSession(_ context.Context, userID string) (*engine.Session, error) {
	m.sessions++
	m.lastUserID = userID
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return &engine.Session{ID: "sess-test", UserID: userID}, nil
}

func (m *mockRunner) Run(_ context.Context, userID, sessionID string, msg engine.Content) (<-chan *engine.Event, <-chan error, error) {
	m.lastUserID = userID
	m.lastSessionID = sessionID
	m.lastMsg = msg
	if m.runErr != nil {
		return nil, nil, m.runErr
	}

	events := make(chan *engine.Event, len(m.events))
	for _, ev := range m.events {
		events <- ev
	}
	close(events)

	errc := make(chan error, 1)
	if m.streamErr != nil {
		errc <- m.streamErr
	}
	return events, errc, nil
}

func finalEvent(text string) *engine.Event {
	return &engine.Event{Author: "agent", Final: true, Content: &engine.Content{
		Role:  "model",
		Parts: []engine.Part{{Text: text}},
	}}
}

func partialEvent(text string) *engine.Event {
	return &engine.Event{Author: "agent", Content: &engine.Content{
		Role:  "model",
		Parts: []engine.Part{{Text: text}},
	}}
}

func newTestGateway(t *testing.T, runner queryRunner) *Gateway {
	t.Helper()

	cfg := testConfig()
	app := NewApp(cfg, &fakeEngineClient{}, discardLogger())
	gw, err := New(cfg, app, discardLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() {
		if err := gw.store.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})

	if runner != nil {
		app.setReady(&engine.AgentHandle{ID: "agent-test"}, runner)
	}
	return gw
}

func postQuery(t *testing.T, gw *Gateway, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	w := httptest.NewRecorder()
	gw.handleQuery(w, req)
	return w
}

func decodeQueryResponse(t *testing.T, w *httptest.ResponseRecorder) QueryResponse {
	t.Helper()
	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestQueryNotReadyStates(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(app *App)
		wantDetail string
	}{
		{
			name:       "not started",
			setup:      func(*App) {},
			wantDetail: "Service not ready: not_started",
		},
		{
			name:       "initializing",
			setup:      func(app *App) { app.setPhase(PhaseInitializing, "") },
			wantDetail: "Service not ready: initializing",
		},
		{
			name:       "failed",
			setup:      func(app *App) { app.setPhase(PhaseFailed, "creating agent: boom") },
			wantDetail: "Service not ready: failed: creating agent: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, nil)
			tt.setup(gw.app)

			w := postQuery(t, gw, `{"question": "hello"}`)

			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want 503", w.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body["detail"] != tt.wantDetail {
				t.Errorf("detail = %q, want %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestQuerySuccess(t *testing.T) {
	runner := &mockRunner{events: []*engine.Event{
		partialEvent("checking the catalog"),
		finalEvent("We carry sizes S through XL."),
	}}
	gw := newTestGateway(t, runner)

	w := postQuery(t, gw, `{"question": "What sizes do you carry?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeQueryResponse(t, w)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.Response != "We carry sizes S through XL." {
		t.Errorf("response = %q", resp.Response)
	}
	if !strings.Contains(w.Body.String(), `"sources":[]`) {
		t.Errorf("body %q missing empty sources list", w.Body.String())
	}

	if runner.lastUserID != "api_user" {
		t.Errorf("user id = %q, want api_user", runner.lastUserID)
	}
	if runner.lastSessionID != "sess-test" {
		t.Errorf("session id = %q, want sess-test", runner.lastSessionID)
	}
	if got := runner.lastMsg; got.Role != "user" || len(got.Parts) != 1 || got.Parts[0].Text != "What sizes do you carry?" {
		t.Errorf("message = %+v", got)
	}
}

func TestQueryFreshSessionPerRequest(t *testing.T) {
	runner := &mockRunner{events: []*engine.Event{finalEvent("ok")}}
	gw := newTestGateway(t, runner)

	postQuery(t, gw, `{"question": "one"}`)
	postQuery(t, gw, `{"question": "two"}`)

	if runner.sessions != 2 {
		t.Errorf("sessions created = %d, want 2", runner.sessions)
	}
}

func TestQueryStopsAtFirstFinal(t *testing.T) {
	runner := &mockRunner{events: []*engine.Event{
		finalEvent("first answer"),
		finalEvent("second answer"),
	}}
	gw := newTestGateway(t, runner)

	resp := decodeQueryResponse(t, postQuery(t, gw, `{"question": "q"}`))

	if resp.Response != "first answer" {
		t.Errorf("response = %q, want first answer", resp.Response)
	}
}

func TestQueryEmptyResponseFallback(t *testing.T) {
	tests := []struct {
		name   string
		events []*engine.Event
	}{
		{"no final event", []*engine.Event{partialEvent("working")}},
		{"final with no content", []*engine.Event{{Final: true}}},
		{"final with empty text", []*engine.Event{finalEvent("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, &mockRunner{events: tt.events})

			resp := decodeQueryResponse(t, postQuery(t, gw, `{"question": "q"}`))

			if resp.Status != "success" {
				t.Errorf("status = %q, want success", resp.Status)
			}
			if resp.Response != "Agent completed but produced no response." {
				t.Errorf("response = %q", resp.Response)
			}
		})
	}
}

func TestQueryNotFoundFromStructuredError(t *testing.T) {
	runner := &mockRunner{runErr: &engine.APIError{
		StatusCode: http.StatusNotFound,
		Message:    "data store projects/test/dataStores/docs does not exist",
	}}
	gw := newTestGateway(t, runner)

	w := postQuery(t, gw, `{"question": "q"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeQueryResponse(t, w)
	if resp.Status != "not_found" {
		t.Errorf("status = %q, want not_found", resp.Status)
	}
	if !strings.HasPrefix(resp.Response, "Search resource not found: ") {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestQueryNotFoundTruncation(t *testing.T) {
	long := "not found: " + strings.Repeat("z", 400)
	gw := newTestGateway(t, &mockRunner{sessionErr: errors.New(long)})

	resp := decodeQueryResponse(t, postQuery(t, gw, `{"question": "q"}`))

	if resp.Status != "not_found" {
		t.Fatalf("status = %q, want not_found", resp.Status)
	}
	// The label plus at most 150 bytes of error text.
	if got := len(resp.Response); got != len("Search resource not found: ")+150 {
		t.Errorf("response length = %d", got)
	}
}

func TestQueryConfigError(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{
		runErr: fmt.Errorf("search tier: advanced search requires Enterprise Edition"),
	})

	resp := decodeQueryResponse(t, postQuery(t, gw, `{"question": "q"}`))

	if resp.Status != "config_error" {
		t.Errorf("status = %q, want config_error", resp.Status)
	}
	if resp.Response != "Your data store configuration requires enterprise features." {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestQueryGenericError(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{runErr: errors.New("connection reset by peer")})

	w := postQuery(t, gw, `{"question": "q"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeQueryResponse(t, w)
	if resp.Status != "error" {
		t.Errorf("status = %q, want error", resp.Status)
	}
	if !strings.HasPrefix(resp.Response, "Query processing failed: ") {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestQueryStreamError(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{
		events:    []*engine.Event{partialEvent("working")},
		streamErr: errors.New("stream: unexpected EOF"),
	})

	resp := decodeQueryResponse(t, postQuery(t, gw, `{"question": "q"}`))

	if resp.Status != "error" {
		t.Errorf("status = %q, want error", resp.Status)
	}
	if !strings.Contains(resp.Response, "unexpected EOF") {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestQueryInvalidJSON(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{events: []*engine.Event{finalEvent("ok")}})

	w := postQuery(t, gw, `{"question": `)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "detail") {
		t.Errorf("body = %q, want detail field", w.Body.String())
	}
}

func TestQueryMethodNotAllowed(t *testing.T) {
	gw := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	w := httptest.NewRecorder()
	gw.handleQuery(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestQueryRecordedInLog(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{events: []*engine.Event{finalEvent("the answer")}})

	postQuery(t, gw, `{"question": "what?"}`)

	recs, err := gw.store.ListQueries(context.Background(), store.QueryFilter{})
	if err != nil {
		t.Fatalf("ListQueries: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Question != "what?" || rec.Status != "success" || rec.Answer != "the answer" {
		t.Errorf("record = %+v", rec)
	}
	if rec.UserID != "api_user" {
		t.Errorf("user id = %q, want api_user", rec.UserID)
	}
}

func TestRootEndpoint(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	gw.handleRoot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp RootResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Status != "ready" {
		t.Errorf("status = %q, want ready", resp.Status)
	}
	if !resp.AgentReady || !resp.RunnerReady {
		t.Errorf("readiness = %v, %v, want true, true", resp.AgentReady, resp.RunnerReady)
	}
	if resp.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.DataStore != "projects/test/dataStores/docs" {
		t.Errorf("data store = %q", resp.DataStore)
	}
}

func TestRootUnknownPath(t *testing.T) {
	gw := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	gw.handleRoot(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		wantStatus string
		wantInit   string
	}{
		{"ready", true, "healthy", "ready"},
		{"not ready", false, "unhealthy", "not_started"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runner queryRunner
			if tt.ready {
				runner = &mockRunner{}
			}
			gw := newTestGateway(t, runner)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			gw.handleHealth(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.InitStatus != tt.wantInit {
				t.Errorf("init_status = %q, want %q", resp.InitStatus, tt.wantInit)
			}
		})
	}
}

func TestTestPatternNotReady(t *testing.T) {
	gw := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/test-local-pattern", nil)
	w := httptest.NewRecorder()
	gw.handleTestPattern(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "Agent not initialized" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestTestPatternSuccess(t *testing.T) {
	long := strings.Repeat("a", 250)
	runner := &mockRunner{events: []*engine.Event{finalEvent(long)}}
	gw := newTestGateway(t, runner)

	req := httptest.NewRequest(http.MethodGet, "/test-local-pattern", nil)
	w := httptest.NewRecorder()
	gw.handleTestPattern(w, req)

	var resp DiagnosticResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Status != "success" || resp.Message != "Local pattern test successful" {
		t.Errorf("resp = %+v", resp)
	}
	if want := long[:200] + "..."; resp.Response != want {
		t.Errorf("response excerpt = %q, want %q", resp.Response, want)
	}
	if runner.lastUserID != "local_test_user" {
		t.Errorf("user id = %q, want local_test_user", runner.lastUserID)
	}
}

func TestTestPatternFailure(t *testing.T) {
	gw := newTestGateway(t, &mockRunner{runErr: errors.New("engine down")})

	req := httptest.NewRequest(http.MethodGet, "/test-local-pattern", nil)
	w := httptest.NewRecorder()
	gw.handleTestPattern(w, req)

	var resp DiagnosticResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("status = %q, want error", resp.Status)
	}
	if !strings.HasPrefix(resp.Message, "Local pattern test failed: ") {
		t.Errorf("message = %q", resp.Message)
	}
}
