package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/tanpawarit/Medicare-IDCard-Assistant/agent/agents/assistant"
	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

const (
	FallbackLLMFailure     = "I'm having trouble processing that request right now. Please try again in a moment."
	FallbackContentPolicy  = "I'm sorry, but I can't help with that request."
	FallbackIterationLimit = "I wasn't able to finish that request in the allowed number of steps. Please try again or rephrase your question."
)

// ReasonPolicy bounds the model calls of one reasoning step.
type ReasonPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
	Now        func() time.Time
}

func (p ReasonPolicy) backoff() retry.Backoff {
	wait := p.Backoff
	if wait <= 0 {
		wait = time.Millisecond
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), retry.NewConstant(wait))
}

func (p ReasonPolicy) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// Reason asks the reasoner for the next assistant message and appends it.
// Recoverable failures are retried; once retries run out, or the model
// refuses on content policy, a fallback assistant message is appended so the
// turn can still finish.
func Reason(
	ctx context.Context,
	in *GraphState,
	reasoner contractx.Reasoner,
	catalog contractx.ToolCatalog,
	policy ReasonPolicy,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	tools := catalog.Schemas()
	attempt := 0
	var reply statex.Message
	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempt++
		callCtx := ctx
		if policy.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
			defer cancel()
		}

		msg, err := reasoner.Reason(callCtx, in.Conversation, tools)
		if err == nil {
			reply = msg
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, contractx.ErrRecoverableLLM) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Err(err).
				Str("session_id", in.SessionID).
				Int("attempt", attempt).
				Msg("llm call failed")
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		if id := assistant.ExtractMemberID(reply, in.Conversation); id != "" {
			in.Conversation.MemberID = id
		}
		in.Conversation.Append(reply)
		return in, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, contractx.ErrContentPolicy):
		log.Warn().Str("session_id", in.SessionID).Msg("llm refused request")
		in.Conversation.Append(statex.NewAssistantMessage(FallbackContentPolicy, nil, policy.now()))
		return in, nil
	case errors.Is(err, contractx.ErrRecoverableLLM), errors.Is(err, context.DeadlineExceeded):
		log.Error().
			Err(err).
			Str("session_id", in.SessionID).
			Int("attempts", attempt).
			Msg("llm retries exhausted")
		in.Conversation.Append(statex.NewAssistantMessage(FallbackLLMFailure, nil, policy.now()))
		return in, nil
	default:
		return nil, err
	}
}
