// Package assistant is the reasoning step: it turns the conversation so far
// into the next assistant message.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	promptx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/prompt"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

type Reasoner struct {
	completer contractx.Completer
	prompts   promptx.PromptSet
}

var _ contractx.Reasoner = (*Reasoner)(nil)

func New(completer contractx.Completer) (*Reasoner, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	return &Reasoner{
		completer: completer,
		prompts:   promptx.LoadPromptSet(),
	}, nil
}

func (r *Reasoner) Reason(
	ctx context.Context,
	conv *statex.ConversationState,
	tools []contractx.ToolDescriptor,
) (statex.Message, error) {
	if conv == nil {
		return statex.Message{}, fmt.Errorf("%w: conversation is nil", contractx.ErrValidation)
	}

	msg, err := r.completer.Complete(ctx, r.prompts.WithMemberID(conv.MemberID), conv.Messages, tools)
	if err != nil {
		switch {
		case errors.Is(err, contractx.ErrContentPolicy),
			errors.Is(err, contractx.ErrRecoverableLLM),
			errors.Is(err, contractx.ErrValidation):
			return statex.Message{}, err
		default:
			return statex.Message{}, fmt.Errorf("%w: %v", contractx.ErrRecoverableLLM, err)
		}
	}
	if msg.Role != statex.RoleAssistant {
		return statex.Message{}, fmt.Errorf("%w: completer returned role %q", contractx.ErrRecoverableLLM, msg.Role)
	}
	return msg, nil
}

var memberIDPattern = regexp.MustCompile(`(?i)\bmember\s*(?:id)?\s*(?:number|no\.?|is|:|#)?\s*(\d{4,})\b`)

// ExtractMemberID finds the member id a turn refers to: a member_id argument
// of the assistant's requests first, then a mention in the latest user
// message. It returns "" when neither has one.
func ExtractMemberID(msg statex.Message, conv *statex.ConversationState) string {
	for _, req := range msg.ToolRequests {
		if id := strings.TrimSpace(cast.ToString(req.Arguments["member_id"])); id != "" {
			return id
		}
	}
	if conv == nil {
		return ""
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role != statex.RoleUser {
			continue
		}
		if m := memberIDPattern.FindStringSubmatch(conv.Messages[i].Content); m != nil {
			return m[1]
		}
		return ""
	}
	return ""
}
