package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Conversation == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	last, ok := in.Conversation.LastMessage()
	if !ok || last.Role != statex.RoleAssistant || last.HasToolRequests() {
		return GraphOutput{}, fmt.Errorf("%w: turn did not end with an assistant answer", contractx.ErrValidation)
	}
	reply := strings.TrimSpace(last.Content)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: assistant returned empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:    reply,
		State:    in.Conversation.Clone(),
		Exceeded: in.Exceeded,
	}, nil
}
