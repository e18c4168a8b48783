// ABOUTME: The query flow: fresh session, one message, drain events to first final
// ABOUTME: Shared by the query endpoint and the diagnostic endpoint

package gateway

import (
	"context"
	"fmt"

	"github.com/2389/sibyl-gateway/internal/engine"
)

// runQuery executes one question through the engine: create a session for
// this request, submit the question as a user message, and consume the
// event stream until the first event marked final. Later events, if any,
// are intentionally discarded; canceling the derived context tears down
// the stream reader.
func (g *Gateway) runQuery(ctx context.Context, userID, question string) (string, error) {
	runner := g.app.Runner()

	session, err := runner.CreateSession(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, errc, err := runner.Run(ctx, userID, session.ID, engine.UserText(question))
	if err != nil {
		return "", fmt.Errorf("submitting message: %w", err)
	}

	var responseText string
	sawFinal := false
	for ev := range events {
		if ev.Final {
			sawFinal = true
			responseText = ev.Text()
			break
		}
	}

	if !sawFinal {
		// Stream ended without a final event. A stream error, if one
		// occurred, is already buffered by the time the channel closes.
		select {
		case streamErr := <-errc:
			if streamErr != nil {
				return "", streamErr
			}
		default:
		}
	}

	if responseText == "" {
		responseText = emptyResponseFallback
	}
	return responseText, nil
}
