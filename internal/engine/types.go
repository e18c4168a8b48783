// ABOUTME: Wire types for the managed agent engine API
// ABOUTME: Agent specs, sessions, message content, and execution events

package engine

import "time"

// AgentSpec describes an agent to be constructed on the engine.
type AgentSpec struct {
	Name        string     `json:"name"`
	Model       string     `json:"model"`
	Description string     `json:"description,omitempty"`
	Instruction string     `json:"instruction"`
	Tools       []ToolSpec `json:"tools,omitempty"`
}

// ToolSpec configures a managed tool attached to an agent.
type ToolSpec struct {
	Type        string `json:"type"`
	DataStoreID string `json:"data_store_id,omitempty"`
}

// SearchTool returns the tool configuration for the engine's managed
// document-search capability over the given data store.
func SearchTool(dataStoreID string) ToolSpec {
	return ToolSpec{Type: "search", DataStoreID: dataStoreID}
}

// AgentHandle is an opaque reference to an agent constructed on the engine.
type AgentHandle struct {
	ID string `json:"agent_id"`
}

// Session is an engine-side conversation context identified by an opaque id.
type Session struct {
	ID        string    `json:"id"`
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Part is a single content segment. Only text parts are consumed today.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is a message envelope exchanged with the engine.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// UserText wraps plain text into a user-role message envelope.
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// Event is one element of an execution event stream.
type Event struct {
	Author  string   `json:"author,omitempty"`
	Final   bool     `json:"final"`
	Content *Content `json:"content,omitempty"`
}

// Text returns the first text segment of the event's content, or "" when
// the event carries no content.
func (e *Event) Text() string {
	if e.Content == nil || len(e.Content.Parts) == 0 {
		return ""
	}
	return e.Content.Parts[0].Text
}
