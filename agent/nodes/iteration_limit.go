package orchestratornode

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/tool"
)

// IterationLimit closes a turn that hit the bound: every still-pending
// request gets a skipped error result so the stored conversation stays
// paired, then a fallback answer ends the turn.
func IterationLimit(in *GraphState, now time.Time) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	pending := in.Conversation.PendingRequests()
	for _, req := range pending {
		in.Conversation.Append(tool.ErrorResult(req, tool.CodeSkipped, "iteration limit reached; tool was not executed", now))
	}
	in.Conversation.Append(statex.NewAssistantMessage(FallbackIterationLimit, nil, now))
	in.Exceeded = true

	log.Warn().
		Str("session_id", in.SessionID).
		Int("iterations", in.Iterations).
		Int("skipped", len(pending)).
		Msg("max tool iterations exceeded")
	return in, nil
}
