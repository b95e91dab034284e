package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

type stubCatalog struct{}

func (stubCatalog) Schemas() []contractx.ToolDescriptor {
	return nil
}

type stubReasoner struct {
	calls   int
	results []error
	reply   statex.Message
	block   bool
}

func (s *stubReasoner) Reason(ctx context.Context, conv *statex.ConversationState, tools []contractx.ToolDescriptor) (statex.Message, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return statex.Message{}, fmt.Errorf("%w: %v", contractx.ErrRecoverableLLM, ctx.Err())
	}
	if idx := s.calls - 1; idx < len(s.results) && s.results[idx] != nil {
		return statex.Message{}, s.results[idx]
	}
	return s.reply, nil
}

func newReasonState() *GraphState {
	return &GraphState{
		SessionID:    "s1",
		Now:          testNow,
		Conversation: conversationWith(statex.NewUserMessage("my member id is 67890, what are my HMO benefits?", testNow)),
	}
}

var testPolicy = ReasonPolicy{
	MaxRetries: 2,
	Backoff:    time.Millisecond,
	Timeout:    time.Second,
	Now:        func() time.Time { return testNow },
}

func TestReasonSetsMemberID(t *testing.T) {
	t.Parallel()

	r := &stubReasoner{reply: statex.NewAssistantMessage("", []statex.ToolInvocationRequest{{
		ID:        "call_1",
		Name:      "get_member_benefits",
		Arguments: map[string]any{"member_id": "67890", "plan_type": "HMO"},
	}}, testNow)}

	out, err := Reason(context.Background(), newReasonState(), r, stubCatalog{}, testPolicy)
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if out.Conversation.MemberID != "67890" {
		t.Fatalf("expected member id 67890, got %q", out.Conversation.MemberID)
	}
	if len(out.Conversation.Messages) != 2 {
		t.Fatalf("expected assistant message appended, got %d messages", len(out.Conversation.Messages))
	}
}

func TestReasonRetriesRecoverableErrors(t *testing.T) {
	t.Parallel()

	r := &stubReasoner{
		results: []error{contractx.ErrRecoverableLLM, contractx.ErrRecoverableLLM},
		reply:   statex.NewAssistantMessage("Here are your benefits.", nil, testNow),
	}
	out, err := Reason(context.Background(), newReasonState(), r, stubCatalog{}, testPolicy)
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if r.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", r.calls)
	}
	last, _ := out.Conversation.LastMessage()
	if last.Content != "Here are your benefits." {
		t.Fatalf("unexpected reply: %q", last.Content)
	}
}

func TestReasonTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	policy := testPolicy
	policy.MaxRetries = 1
	policy.Timeout = 5 * time.Millisecond

	r := &stubReasoner{block: true}
	out, err := Reason(context.Background(), newReasonState(), r, stubCatalog{}, policy)
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if r.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", r.calls)
	}
	last, _ := out.Conversation.LastMessage()
	if last.Content != FallbackLLMFailure || last.HasToolRequests() {
		t.Fatalf("expected fallback answer, got %+v", last)
	}
}

func TestReasonParentCancellationAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &stubReasoner{results: []error{contractx.ErrRecoverableLLM}}
	in := newReasonState()
	_, err := Reason(ctx, in, r, stubCatalog{}, testPolicy)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(in.Conversation.Messages) != 1 {
		t.Fatalf("cancelled reasoning must not append, got %d messages", len(in.Conversation.Messages))
	}
}
