package state

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func toolTurn(ids ...string) Message {
	reqs := make([]ToolInvocationRequest, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, ToolInvocationRequest{ID: id, Name: "get_id_list", Arguments: map[string]any{"member_id": "12345"}})
	}
	return NewAssistantMessage("", reqs, testNow)
}

func TestConversationValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msgs    []Message
		wantErr bool
	}{
		{
			name: "empty",
		},
		{
			name: "plain exchange",
			msgs: []Message{
				NewUserMessage("hi", testNow),
				NewAssistantMessage("hello", nil, testNow),
			},
		},
		{
			name: "resolved requests",
			msgs: []Message{
				NewUserMessage("list my cards", testNow),
				toolTurn("a", "b"),
				NewToolResultMessage("b", "get_id_list", "{}", false, testNow),
				NewToolResultMessage("a", "get_id_list", "{}", false, testNow),
				NewAssistantMessage("done", nil, testNow),
			},
		},
		{
			name: "unresolved trailing requests",
			msgs: []Message{
				NewUserMessage("list my cards", testNow),
				toolTurn("a", "b"),
				NewToolResultMessage("a", "get_id_list", "{}", false, testNow),
			},
			wantErr: true,
		},
		{
			name: "user message interrupts results",
			msgs: []Message{
				toolTurn("a"),
				NewUserMessage("hello?", testNow),
				NewToolResultMessage("a", "get_id_list", "{}", false, testNow),
			},
			wantErr: true,
		},
		{
			name: "result for older assistant",
			msgs: []Message{
				toolTurn("a"),
				NewToolResultMessage("a", "get_id_list", "{}", false, testNow),
				toolTurn("b"),
				NewToolResultMessage("a", "get_id_list", "{}", false, testNow),
			},
			wantErr: true,
		},
		{
			name: "duplicate request ids",
			msgs: []Message{
				toolTurn("a", "a"),
			},
			wantErr: true,
		},
		{
			name: "orphan tool result",
			msgs: []Message{
				NewToolResultMessage("x", "get_id_list", "{}", false, testNow),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := NewConversationState("s1", testNow)
			st.Append(tt.msgs...)
			err := st.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConversation) {
					t.Fatalf("Validate() error = %v, want ErrInvalidConversation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestConversationValidateSessionID(t *testing.T) {
	t.Parallel()

	st := NewConversationState("  ", testNow)
	if err := st.Validate(); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Validate() error = %v, want ErrInvalidSession", err)
	}
}

func TestConversationPendingRequests(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", testNow)
	st.Append(
		NewUserMessage("status", testNow),
		toolTurn("a", "b", "c"),
		NewToolResultMessage("b", "get_id_list", "{}", false, testNow),
	)

	pending := st.PendingRequests()
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "c" {
		t.Fatalf("PendingRequests() = %#v, want a and c", pending)
	}

	st.Append(NewAssistantMessage("bye", nil, testNow))
	if got := st.PendingRequests(); len(got) != 0 {
		t.Fatalf("PendingRequests() after final answer = %#v", got)
	}
}

func TestConversationCloneIsDeep(t *testing.T) {
	t.Parallel()

	st := NewConversationState("s1", testNow)
	st.Append(toolTurn("a"))

	cp := st.Clone()
	cp.Messages[0].ToolRequests[0].Arguments["member_id"] = "99999"
	cp.Append(NewUserMessage("more", testNow))

	if got := st.Messages[0].ToolRequests[0].Arguments["member_id"]; got != "12345" {
		t.Fatalf("original argument mutated to %v", got)
	}
	if len(st.Messages) != 1 {
		t.Fatalf("original messages = %d, want 1", len(st.Messages))
	}
}

func TestNewMessagesSetRole(t *testing.T) {
	t.Parallel()

	user := NewUserMessage("  hi  ", testNow)
	if user.Role != RoleUser || user.Content != "hi" || user.ID == "" {
		t.Fatalf("unexpected user message: %#v", user)
	}
	res := NewToolResultMessage("call_1", "get_id_list", "boom", true, testNow)
	if res.Role != RoleTool || res.ToolCallID != "call_1" || !res.IsError {
		t.Fatalf("unexpected tool result: %#v", res)
	}
	if NewAssistantMessage("x", nil, testNow).HasToolRequests() {
		t.Fatal("assistant without requests reports HasToolRequests")
	}
}
