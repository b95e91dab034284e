package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

// EinoCompleter drives an eino tool-calling chat model.
type EinoCompleter struct {
	model einomodel.ToolCallingChatModel
	now   func() time.Time
}

var _ contractx.Completer = (*EinoCompleter)(nil)

func NewEinoCompleter(m einomodel.ToolCallingChatModel) *EinoCompleter {
	return &EinoCompleter{model: m, now: time.Now}
}

func (c *EinoCompleter) Complete(
	ctx context.Context,
	system string,
	messages []statex.Message,
	tools []contractx.ToolDescriptor,
) (statex.Message, error) {
	if c == nil || c.model == nil {
		return statex.Message{}, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}

	chatModel := c.model
	if len(tools) > 0 {
		bound, err := c.model.WithTools(ToToolInfos(tools))
		if err != nil {
			return statex.Message{}, fmt.Errorf("%w: bind tools: %v", contractx.ErrValidation, err)
		}
		chatModel = bound
	}

	out, err := chatModel.Generate(ctx, ToEinoMessages(system, messages))
	if err != nil {
		if errors.Is(err, contractx.ErrContentPolicy) {
			return statex.Message{}, err
		}
		return statex.Message{}, fmt.Errorf("%w: model generate: %v", contractx.ErrRecoverableLLM, err)
	}
	return fromEinoMessage(out, c.now())
}
