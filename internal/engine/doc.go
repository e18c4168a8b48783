// Package engine is the client for the managed agent engine.
//
// # Overview
//
// The engine is an external, hosted service that owns every hard part of
// question answering: document retrieval, ranking, grounding, and model
// inference. This package only speaks its HTTP API and treats everything
// behind it as opaque.
//
// # Objects
//
//   - AgentSpec / AgentHandle: an agent is constructed once on the engine
//     from a name, model id, instruction, and tool list. The handle that
//     comes back is an opaque id.
//   - Session: an engine-side conversation context with an opaque id.
//     Sessions are created per request and never reused or destroyed here;
//     their lifecycle belongs to the engine.
//   - Event: one element of an execution event stream. An event marked
//     final is expected to carry the complete answer text.
//
// # Streaming
//
// Run submits a message and returns a channel of events parsed lazily from
// the engine's SSE response. The events channel is closed when the stream
// ends or the caller's context is canceled, so a consumer may stop at the
// first final event without leaking the reader goroutine. The error channel
// is buffered and carries at most one stream error.
//
// # Runner
//
// Runner binds a Client to a constructed agent and an app name, mirroring
// the engine's own execution coordinator: session creation by user id, and
// message execution by user id + session id.
package engine
