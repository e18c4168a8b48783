// ABOUTME: Classification of query execution failures into response status buckets
// ABOUTME: Prefers structured engine status codes, falls back to substring matching

package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/2389/sibyl-gateway/internal/engine"
)

// Kind classifies a query execution failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindNotFound
	KindConfig
)

// Response text fragments. The fallback sentence marks the defined
// empty-response case, distinguishing it from an execution error.
const (
	notFoundLabel         = "Search resource not found: "
	genericLabel          = "Query processing failed: "
	configMessage         = "Your data store configuration requires enterprise features."
	emptyResponseFallback = "Agent completed but produced no response."
)

// Classify buckets an execution error. A structured 404 from the engine is
// authoritative; otherwise the error text is matched by substring. The
// substring match on free-text messages is a fragile heuristic kept for
// engines that only return prose.
func Classify(err error) Kind {
	var apiErr *engine.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return KindNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "404"), strings.Contains(msg, "not found"):
		return KindNotFound
	case strings.Contains(msg, "enterprise edition"):
		return KindConfig
	default:
		return KindGeneric
	}
}

// errorResponse converts a classified failure into the always-200 response
// envelope. Error text is truncated so engine stack traces don't flood the
// response body.
func errorResponse(err error) QueryResponse {
	switch Classify(err) {
	case KindNotFound:
		return QueryResponse{
			Response: notFoundLabel + truncate(err.Error(), 150),
			Status:   "not_found",
			Sources:  []Source{},
		}
	case KindConfig:
		return QueryResponse{
			Response: configMessage,
			Status:   "config_error",
			Sources:  []Source{},
		}
	default:
		return QueryResponse{
			Response: genericLabel + truncate(err.Error(), 200),
			Status:   "error",
			Sources:  []Source{},
		}
	}
}

// truncate cuts s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
