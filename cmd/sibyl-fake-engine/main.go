// ABOUTME: Minimal fake agent engine for E2E testing — serves the REST/SSE API locally.
// ABOUTME: Usage: sibyl-fake-engine [-addr localhost:9090] [-answer "text"] [-fail mode]

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/2389/sibyl-gateway/internal/engine"
)

func main() {
	addr := flag.String("addr", "localhost:9090", "listen address")
	answer := flag.String("answer", "This is a canned answer from the fake engine.", "final answer text")
	failMode := flag.String("fail", "", "failure mode for /v1/run: notfound, enterprise, or error")
	delay := flag.Duration("delay", 50*time.Millisecond, "delay between streamed events")
	flag.Parse()

	srv := &fakeEngine{
		answer:   *answer,
		failMode: *failMode,
		delay:    *delay,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/agents", srv.handleAgents)
	mux.HandleFunc("/v1/sessions", srv.handleSessions)
	mux.HandleFunc("/v1/run", srv.handleRun)

	log.Printf("fake engine listening on %s (fail=%q)", *addr, *failMode)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

type fakeEngine struct {
	answer   string
	failMode string
	delay    time.Duration
}

func (f *fakeEngine) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec engine.AgentSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid agent spec", http.StatusBadRequest)
		return
	}
	log.Printf("creating agent %q (model %s)", spec.Name, spec.Model)

	writeJSON(w, engine.AgentHandle{ID: "fake-" + uuid.New().String()})
}

func (f *fakeEngine) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AppName string `json:"app_name"`
		UserID  string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid session request", http.StatusBadRequest)
		return
	}

	writeJSON(w, engine.Session{
		ID:        uuid.New().String(),
		AppName:   req.AppName,
		UserID:    req.UserID,
		CreatedAt: time.Now().UTC(),
	})
}

func (f *fakeEngine) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch f.failMode {
	case "notfound":
		http.Error(w, "data store not found", http.StatusNotFound)
		return
	case "enterprise":
		http.Error(w, "this feature requires Enterprise edition", http.StatusInternalServerError)
		return
	case "error":
		http.Error(w, "synthetic engine failure", http.StatusInternalServerError)
		return
	}

	var req engine.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid run request", http.StatusBadRequest)
		return
	}
	log.Printf("run for agent %s session %s: %q", req.AgentID, req.SessionID, firstText(req.Message))

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, &engine.Event{
		Author:  "fake-engine",
		Content: &engine.Content{Role: "model", Parts: []engine.Part{{Text: "searching documents"}}},
	})
	flusher.Flush()
	time.Sleep(f.delay)

	writeEvent(w, &engine.Event{
		Author:  "fake-engine",
		Final:   true,
		Content: &engine.Content{Role: "model", Parts: []engine.Part{{Text: f.answer}}},
	})
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, ev *engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("marshaling event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}

func firstText(msg engine.Content) string {
	if len(msg.Parts) == 0 {
		return ""
	}
	return msg.Parts[0].Text
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
