package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
)

// ExecuteTools runs every pending request of the latest assistant message and
// appends one result per request, in request order.
func ExecuteTools(
	ctx context.Context,
	in *GraphState,
	runner contractx.ToolRunner,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	pending := in.Conversation.PendingRequests()
	if len(pending) == 0 {
		return nil, fmt.Errorf("%w: no pending tool requests", contractx.ErrRouterContract)
	}

	results, err := runner.Execute(ctx, pending)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) != len(pending) {
		return nil, fmt.Errorf("%w: %d tool results for %d requests", contractx.ErrValidation, len(results), len(pending))
	}
	for i, res := range results {
		if res.ToolCallID != pending[i].ID {
			return nil, fmt.Errorf("%w: tool result %d answers %q, want %q",
				contractx.ErrValidation, i, res.ToolCallID, pending[i].ID)
		}
	}

	in.Conversation.Append(results...)
	in.Iterations++
	log.Debug().
		Str("session_id", in.SessionID).
		Int("iteration", in.Iterations).
		Int("tool_calls", len(results)).
		Msg("tools executed")
	return in, nil
}
