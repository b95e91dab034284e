package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidConversation = errors.New("conversation state is invalid")

// ConversationState is the persisted transcript of one session. Messages is
// append-only across turns.
type ConversationState struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	MemberID  string    `json:"member_id,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	now = now.UTC()
	return &ConversationState{
		SessionID: sessionID,
		Messages:  []Message{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *ConversationState) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

func (c *ConversationState) LastMessage() (Message, bool) {
	if c == nil || len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// PendingRequests returns the requests of the latest assistant message that
// have no tool result yet.
func (c *ConversationState) PendingRequests() []ToolInvocationRequest {
	if c == nil {
		return nil
	}
	answered := map[string]struct{}{}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		switch msg.Role {
		case RoleTool:
			answered[msg.ToolCallID] = struct{}{}
		case RoleAssistant:
			var pending []ToolInvocationRequest
			for _, req := range msg.ToolRequests {
				if _, ok := answered[req.ID]; !ok {
					pending = append(pending, req)
				}
			}
			return pending
		default:
			return nil
		}
	}
	return nil
}

func (c *ConversationState) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

func (c *ConversationState) Clone() *ConversationState {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	for i, msg := range c.Messages {
		out.Messages[i] = msg.clone()
	}
	return &out
}

// Validate checks the tool-call pairing invariant: every assistant message
// with requests is followed by a contiguous run of tool results covering all
// of its request ids, and every tool result answers the latest assistant
// message.
func (c *ConversationState) Validate() error {
	if c == nil {
		return ErrNilConversationState
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return ErrInvalidSession
	}

	var (
		pending   map[string]struct{}
		pendingAt int
	)
	for i, msg := range c.Messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidConversation, i, msg.Role)
		}
		if msg.Role != RoleTool && len(pending) > 0 {
			return fmt.Errorf("%w: message %d (%s) follows unresolved tool requests of message %d",
				ErrInvalidConversation, i, msg.Role, pendingAt)
		}

		switch msg.Role {
		case RoleAssistant:
			if len(msg.ToolRequests) == 0 {
				continue
			}
			pending = make(map[string]struct{}, len(msg.ToolRequests))
			pendingAt = i
			for _, req := range msg.ToolRequests {
				if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
					return fmt.Errorf("%w: message %d has a tool request without id or name", ErrInvalidConversation, i)
				}
				if _, dup := pending[req.ID]; dup {
					return fmt.Errorf("%w: message %d repeats tool request id %q", ErrInvalidConversation, i, req.ID)
				}
				pending[req.ID] = struct{}{}
			}
		case RoleTool:
			if _, ok := pending[msg.ToolCallID]; !ok {
				return fmt.Errorf("%w: tool result %d references unknown request %q", ErrInvalidConversation, i, msg.ToolCallID)
			}
			delete(pending, msg.ToolCallID)
		default:
			if len(msg.ToolRequests) > 0 || msg.ToolCallID != "" {
				return fmt.Errorf("%w: %s message %d carries tool fields", ErrInvalidConversation, msg.Role, i)
			}
		}
	}

	if len(pending) > 0 {
		return fmt.Errorf("%w: message %d has %d unresolved tool requests", ErrInvalidConversation, pendingAt, len(pending))
	}
	return nil
}
