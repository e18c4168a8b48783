// Package gateway is the HTTP façade in front of the managed agent engine.
//
// # Overview
//
// The gateway owns no hard logic: retrieval, ranking, grounding, and
// inference all happen inside the engine. What lives here is
// initialization, request/response shuttling, and error translation.
//
// # App
//
// App is the application context shared by every handler: the readiness
// phase plus the agent and runner handles. It is constructed once at
// process start and passed into the gateway by reference; Initialize sets
// its fields exactly once, so handlers read them without further
// coordination. Either both handles are present (ready) or both are absent.
//
// # HTTP API
//
//   - GET  /                   - static metadata plus readiness state
//   - GET  /health             - healthy iff initialization completed
//   - POST /query              - answer one question (503 until ready)
//   - GET  /test-local-pattern - diagnostic replay of the query flow
//
// # Query flow
//
// Each query opens a fresh engine session, submits the question as a
// user-role message, and consumes the execution event stream until the
// first event marked final. Events after the final one are intentionally
// discarded. Execution failures never surface as HTTP errors: they are
// classified into status buckets and returned in a 200 body.
//
// # Lifecycle
//
// Run starts the HTTP server (plain TCP or a tsnet listener, optionally
// with Funnel or Tailscale-provisioned certs) and blocks until the context
// is canceled, then shuts down gracefully with a fresh 5 second deadline.
package gateway
