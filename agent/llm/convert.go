package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rawToolCall is the provider-neutral shape of a tool call in a completion.
type rawToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// toAssistantMessage validates the model's tool calls and builds the
// assistant message. Missing or repeated call ids are replaced so every
// request id is unique within the message.
func toAssistantMessage(content string, calls []rawToolCall, now time.Time) (statex.Message, error) {
	reqs := make([]statex.ToolInvocationRequest, 0, len(calls))
	seen := make(map[string]struct{}, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Name)
		if name == "" {
			return statex.Message{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrRecoverableLLM)
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return statex.Message{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrRecoverableLLM, name, err)
			}
			if args == nil {
				args = map[string]any{}
			}
		}

		id := strings.TrimSpace(call.ID)
		if _, dup := seen[id]; id == "" || dup {
			id = "call_" + uuid.NewString()
		}
		seen[id] = struct{}{}

		reqs = append(reqs, statex.ToolInvocationRequest{ID: id, Name: name, Arguments: args})
	}

	if len(reqs) == 0 && strings.TrimSpace(content) == "" {
		return statex.Message{}, fmt.Errorf("%w: empty completion", contractx.ErrRecoverableLLM)
	}
	return statex.NewAssistantMessage(content, reqs, now), nil
}

func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// ToEinoMessages renders system instructions plus the transcript.
func ToEinoMessages(system string, msgs []statex.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, schema.SystemMessage(system))
	}
	for _, msg := range msgs {
		switch msg.Role {
		case statex.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case statex.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case statex.RoleAssistant:
			var calls []schema.ToolCall
			for _, req := range msg.ToolRequests {
				calls = append(calls, schema.ToolCall{
					ID:   req.ID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      req.Name,
						Arguments: encodeArguments(req.Arguments),
					},
				})
			}
			out = append(out, schema.AssistantMessage(msg.Content, calls))
		case statex.RoleTool:
			out = append(out, schema.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func ToToolInfos(tools []contractx.ToolDescriptor) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		params := make(map[string]*schema.ParameterInfo, len(t.Params))
		for _, p := range t.Params {
			params[p.Name] = &schema.ParameterInfo{
				Type:     schema.DataType(p.Type),
				Desc:     p.Description,
				Enum:     p.Enum,
				Required: p.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func fromEinoMessage(msg *schema.Message, now time.Time) (statex.Message, error) {
	if msg == nil {
		return statex.Message{}, fmt.Errorf("%w: empty model response", contractx.ErrRecoverableLLM)
	}
	if msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason == "content_filter" {
		return statex.Message{}, fmt.Errorf("%w: completion was filtered", contractx.ErrContentPolicy)
	}
	calls := make([]rawToolCall, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		calls = append(calls, rawToolCall{ID: call.ID, Name: call.Function.Name, Arguments: call.Function.Arguments})
	}
	return toAssistantMessage(msg.Content, calls, now)
}
