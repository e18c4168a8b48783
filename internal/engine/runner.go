// ABOUTME: Runner binds a constructed agent to the engine's session and execution operations
// ABOUTME: Mirrors the engine's execution coordinator: sessions by user, runs by user+session

package engine

import "context"

// API captures the engine operations Runner depends on. *Client satisfies
// it; tests substitute fakes.
type API interface {
	CreateSession(ctx context.Context, appName, userID string) (*Session, error)
	Run(ctx context.Context, req RunRequest) (<-chan *Event, <-chan error, error)
}

// Runner drives a single constructed agent through engine sessions and
// execution streams. It is created once at startup and shared read-only
// across requests.
type Runner struct {
	client  API
	agent   *AgentHandle
	appName string
}

// NewRunner binds a client to an agent handle and app name.
func NewRunner(client API, agent *AgentHandle, appName string) *Runner {
	return &Runner{
		client:  client,
		agent:   agent,
		appName: appName,
	}
}

// Agent returns the bound agent handle.
func (r *Runner) Agent() *AgentHandle {
	return r.agent
}

// CreateSession opens a fresh session for the given user under the runner's
// app name.
func (r *Runner) CreateSession(ctx context.Context, userID string) (*Session, error) {
	return r.client.CreateSession(ctx, r.appName, userID)
}

// Run submits one message to the bound agent within an existing session and
// returns the execution event stream.
func (r *Runner) Run(ctx context.Context, userID, sessionID string, msg Content) (<-chan *Event, <-chan error, error) {
	return r.client.Run(ctx, RunRequest{
		AgentID:   r.agent.ID,
		AppName:   r.appName,
		UserID:    userID,
		SessionID: sessionID,
		Message:   msg,
	})
}
