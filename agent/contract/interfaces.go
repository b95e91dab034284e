package contract

import (
	"context"

	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

// Completer is the LLM capability: given the system instructions, the
// conversation so far and the available tools, produce one assistant message.
type Completer interface {
	Complete(ctx context.Context, system string, messages []statex.Message, tools []ToolDescriptor) (statex.Message, error)
}

// Reasoner produces the next assistant message for a conversation.
type Reasoner interface {
	Reason(ctx context.Context, conv *statex.ConversationState, tools []ToolDescriptor) (statex.Message, error)
}

// ToolRunner executes the requests of one assistant message.
type ToolRunner interface {
	Execute(ctx context.Context, reqs []statex.ToolInvocationRequest) ([]statex.Message, error)
}

// ToolCatalog exposes the registered tool schemas.
type ToolCatalog interface {
	Schemas() []ToolDescriptor
}
