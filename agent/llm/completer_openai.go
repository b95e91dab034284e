package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
	openrouterx "github.com/tanpawarit/Medicare-IDCard-Assistant/pkg/openrouter"
)

// OpenAICompleter calls the chat completions endpoint directly through the
// openai-go client.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int64
	now         func() time.Time
}

var _ contractx.Completer = (*OpenAICompleter)(nil)

func NewOpenAICompleter(client *openai.Client, cfg openrouterx.Config) *OpenAICompleter {
	c := &OpenAICompleter{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: float64(cfg.Temperature),
		now:         time.Now,
	}
	if cfg.MaxCompletionToken > 0 {
		c.maxTokens = int64(cfg.MaxCompletionToken)
	}
	return c
}

func (c *OpenAICompleter) Complete(
	ctx context.Context,
	system string,
	messages []statex.Message,
	tools []contractx.ToolDescriptor,
) (statex.Message, error) {
	if c == nil || c.client == nil {
		return statex.Message{}, fmt.Errorf("%w: openai client is nil", contractx.ErrValidation)
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toOpenAIMessages(system, messages),
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxTokens)
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Code == "content_policy_violation" {
			return statex.Message{}, fmt.Errorf("%w: %s", contractx.ErrContentPolicy, apiErr.Message)
		}
		return statex.Message{}, fmt.Errorf("%w: chat completion: %v", contractx.ErrRecoverableLLM, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return statex.Message{}, fmt.Errorf("%w: completion has no choices", contractx.ErrRecoverableLLM)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" || strings.TrimSpace(choice.Message.Refusal) != "" {
		return statex.Message{}, fmt.Errorf("%w: completion was refused", contractx.ErrContentPolicy)
	}

	calls := make([]rawToolCall, 0, len(choice.Message.ToolCalls))
	for _, call := range choice.Message.ToolCalls {
		calls = append(calls, rawToolCall{ID: call.ID, Name: call.Function.Name, Arguments: call.Function.Arguments})
	}
	return toAssistantMessage(choice.Message.Content, calls, c.now())
}

func toOpenAIMessages(system string, msgs []statex.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, msg := range msgs {
		switch msg.Role {
		case statex.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case statex.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case statex.RoleAssistant:
			if len(msg.ToolRequests) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, req := range msg.ToolRequests {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: req.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      req.Name,
						Arguments: encodeArguments(req.Arguments),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case statex.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func toOpenAITools(tools []contractx.ToolDescriptor) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.JSONSchema()),
			},
		})
	}
	return out
}
