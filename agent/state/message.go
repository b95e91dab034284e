package state

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// ToolInvocationRequest is one tool call emitted by the assistant.
type ToolInvocationRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single conversation entry. Role decides which fields are
// meaningful: ToolRequests only on assistant messages, ToolCallID, ToolName
// and IsError only on tool results.
type Message struct {
	ID           string                  `json:"id"`
	Role         Role                    `json:"role"`
	Content      string                  `json:"content,omitempty"`
	ToolRequests []ToolInvocationRequest `json:"tool_requests,omitempty"`
	ToolCallID   string                  `json:"tool_call_id,omitempty"`
	ToolName     string                  `json:"tool_name,omitempty"`
	IsError      bool                    `json:"is_error,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

func NewSystemMessage(content string, now time.Time) Message {
	return newMessage(RoleSystem, content, now)
}

func NewUserMessage(content string, now time.Time) Message {
	return newMessage(RoleUser, strings.TrimSpace(content), now)
}

func NewAssistantMessage(content string, reqs []ToolInvocationRequest, now time.Time) Message {
	msg := newMessage(RoleAssistant, strings.TrimSpace(content), now)
	if len(reqs) > 0 {
		msg.ToolRequests = append([]ToolInvocationRequest(nil), reqs...)
	}
	return msg
}

func NewToolResultMessage(callID, toolName, content string, isError bool, now time.Time) Message {
	msg := newMessage(RoleTool, content, now)
	msg.ToolCallID = callID
	msg.ToolName = toolName
	msg.IsError = isError
	return msg
}

func newMessage(role Role, content string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now.UTC(),
	}
}

// HasToolRequests reports whether m is an assistant message asking for tools.
func (m Message) HasToolRequests() bool {
	return m.Role == RoleAssistant && len(m.ToolRequests) > 0
}

func (m Message) clone() Message {
	out := m
	if len(m.ToolRequests) > 0 {
		out.ToolRequests = make([]ToolInvocationRequest, len(m.ToolRequests))
		for i, req := range m.ToolRequests {
			out.ToolRequests[i] = ToolInvocationRequest{
				ID:        req.ID,
				Name:      req.Name,
				Arguments: cloneArgs(req.Arguments),
			}
		}
	}
	return out
}

func cloneArgs(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneArgs(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
