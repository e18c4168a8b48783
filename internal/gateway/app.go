// ABOUTME: Application context holding engine handles and readiness state
// ABOUTME: Replaces process globals with a single injected object set once at startup

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/sibyl-gateway/internal/config"
	"github.com/2389/sibyl-gateway/internal/engine"
)

// Phase is the coarse initialization state of the gateway.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseInitializing
	PhaseReady
	PhaseFailed
)

// Fixed user identities. Caller identity is not derived from the request.
const (
	smokeTestUser  = "test_user"
	queryUser      = "api_user"
	diagnosticUser = "local_test_user"
)

// engineClient captures the engine operations App depends on. *engine.Client
// satisfies it; tests substitute fakes.
type engineClient interface {
	CreateAgent(ctx context.Context, spec engine.AgentSpec) (*engine.AgentHandle, error)
	engine.API
}

// queryRunner is the runner surface the query flow needs. *engine.Runner
// satisfies it; tests inject mocks.
type queryRunner interface {
	CreateSession(ctx context.Context, userID string) (*engine.Session, error)
	Run(ctx context.Context, userID, sessionID string, msg engine.Content) (<-chan *engine.Event, <-chan error, error)
}

// App holds the engine handles and readiness state shared by all request
// handlers. Initialize sets the fields exactly once per process; the mutex
// only covers the window where handlers race with initialization.
type App struct {
	cfg    *config.Config
	client engineClient
	logger *slog.Logger

	mu         sync.RWMutex
	phase      Phase
	failReason string
	agent      *engine.AgentHandle
	runner     queryRunner
}

// NewApp creates an application context in the not_started phase.
func NewApp(cfg *config.Config, client engineClient, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "app"),
	}
}

// Initialize constructs the agent and runner on the engine and smoke-tests
// session creation. On any failure the app is left in the failed phase with
// both handles unset; the process keeps serving status endpoints. Runs once
// per process lifetime; there is no re-initialization path.
func (a *App) Initialize(ctx context.Context) {
	a.setPhase(PhaseInitializing, "")
	a.logger.Info("initializing engine agent",
		"model", a.cfg.Engine.Model,
		"data_store", a.cfg.Engine.DataStoreID,
	)

	agent, err := a.client.CreateAgent(ctx, engine.AgentSpec{
		Name:        a.cfg.Engine.AgentName,
		Model:       a.cfg.Engine.Model,
		Description: "Agent that answers questions via managed document search",
		Instruction: a.cfg.Engine.Instruction,
		Tools:       []engine.ToolSpec{engine.SearchTool(a.cfg.Engine.DataStoreID)},
	})
	if err != nil {
		a.fail(fmt.Sprintf("creating agent: %v", err))
		return
	}
	a.logger.Info("agent created", "agent_id", agent.ID)

	runner := engine.NewRunner(a.client, agent, a.cfg.Engine.AppName)

	// Throwaway session as a startup smoke test
	if _, err := runner.CreateSession(ctx, smokeTestUser); err != nil {
		a.fail(fmt.Sprintf("creating smoke test session: %v", err))
		return
	}

	a.mu.Lock()
	a.phase = PhaseReady
	a.agent = agent
	a.runner = runner
	a.mu.Unlock()

	a.logger.Info("engine agent ready", "agent_id", agent.ID)
}

// fail records a startup failure and leaves both handles unset.
func (a *App) fail(reason string) {
	a.setPhase(PhaseFailed, reason)
	a.logger.Error("initialization failed", "reason", reason)
}

func (a *App) setPhase(phase Phase, reason string) {
	a.mu.Lock()
	a.phase = phase
	a.failReason = reason
	a.mu.Unlock()
}

// Ready reports whether initialization completed and both handles are set.
func (a *App) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.phase == PhaseReady && a.agent != nil && a.runner != nil
}

// StateString renders the readiness state the way callers see it:
// not_started, initializing, ready, or "failed: <reason>".
func (a *App) StateString() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch a.phase {
	case PhaseNotStarted:
		return "not_started"
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed: " + a.failReason
	default:
		return "unknown"
	}
}

// Handles reports presence of the agent and runner handles.
func (a *App) Handles() (agentReady, runnerReady bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.agent != nil, a.runner != nil
}

// Runner returns the runner handle, or nil before initialization completes.
func (a *App) Runner() queryRunner {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runner
}

// setReady installs handles directly. Initialize is the production path;
// tests inject fakes through this.
func (a *App) setReady(agent *engine.AgentHandle, runner queryRunner) {
	a.mu.Lock()
	a.phase = PhaseReady
	a.agent = agent
	a.runner = runner
	a.mu.Unlock()
}
