package tool

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

var memberParam = contractx.ParamSpec{Name: "member_id", Type: contractx.ParamString, Required: true}

func TestExecutorUnknownToolBecomesErrorResult(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.MustRegister(echoTool("get_id_list", memberParam))

	out, err := NewExecutor(reg).Execute(context.Background(), []statex.ToolInvocationRequest{
		{ID: "c1", Name: "frobnicate", Arguments: map[string]any{}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsError)
	assert.Equal(t, "c1", out[0].ToolCallID)
	assert.Equal(t, statex.RoleTool, out[0].Role)

	var payload errorPayload
	require.NoError(t, json.Unmarshal([]byte(out[0].Content), &payload))
	assert.Equal(t, CodeUnknownTool, payload.Error)
}

func TestExecutorPreservesRequestOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.MustRegister(contractx.ToolDescriptor{
		Name:   "slow",
		Params: []contractx.ParamSpec{{Name: "n", Type: contractx.ParamInteger, Required: true}},
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			n := args["n"].(int64)
			time.Sleep(time.Duration(10-n) * time.Millisecond)
			return map[string]any{"n": n}, nil
		},
	})

	reqs := make([]statex.ToolInvocationRequest, 0, 8)
	for i := 0; i < 8; i++ {
		reqs = append(reqs, statex.ToolInvocationRequest{
			ID:        "c" + string(rune('0'+i)),
			Name:      "slow",
			Arguments: map[string]any{"n": float64(i)},
		})
	}

	out, err := NewExecutor(reg, WithMaxConcurrency(8)).Execute(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, out, len(reqs))
	for i, msg := range out {
		assert.Equal(t, reqs[i].ID, msg.ToolCallID)
		assert.False(t, msg.IsError, msg.Content)
	}
}

func TestExecutorBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak int32
	reg := NewRegistry()
	reg.MustRegister(contractx.ToolDescriptor{
		Name: "work",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return "ok", nil
		},
	})

	reqs := make([]statex.ToolInvocationRequest, 10)
	for i := range reqs {
		reqs[i] = statex.ToolInvocationRequest{ID: string(rune('a' + i)), Name: "work"}
	}

	_, err := NewExecutor(reg, WithMaxConcurrency(2)).Execute(context.Background(), reqs)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecutorArgumentValidation(t *testing.T) {
	t.Parallel()

	var called int32
	reg := NewRegistry()
	reg.MustRegister(contractx.ToolDescriptor{
		Name:   "get_id_list",
		Params: []contractx.ParamSpec{memberParam},
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			atomic.AddInt32(&called, 1)
			return "ok", nil
		},
	})

	cases := []map[string]any{
		{},
		{"member_id": ""},
		{"member_id": "12345", "extra": true},
		{"member_id": map[string]any{"nested": 1}},
	}
	for _, args := range cases {
		out, err := NewExecutor(reg).Execute(context.Background(), []statex.ToolInvocationRequest{
			{ID: "c1", Name: "get_id_list", Arguments: args},
		})
		require.NoError(t, err)
		assert.True(t, out[0].IsError, "args %v should fail", args)
		assert.Contains(t, out[0].Content, CodeInvalidArguments)
	}
	assert.Zero(t, atomic.LoadInt32(&called))
}

func TestExecutorBackendFailureIsSanitized(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.MustRegister(contractx.ToolDescriptor{
		Name: "explode",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("pq: password authentication failed for user admin")
		},
	})
	reg.MustRegister(contractx.ToolDescriptor{
		Name: "typed",
		Func: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, &BackendError{Code: CodeUnavailable, Message: "try later", Err: errors.New("dial tcp")}
		},
	})

	out, err := NewExecutor(reg).Execute(context.Background(), []statex.ToolInvocationRequest{
		{ID: "c1", Name: "explode"},
		{ID: "c2", Name: "typed"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsError)
	assert.False(t, strings.Contains(out[0].Content, "password"))
	assert.Contains(t, out[0].Content, CodeFailed)
	assert.Contains(t, out[1].Content, CodeUnavailable)
	assert.Contains(t, out[1].Content, "try later")
}

func TestExecutorNilRegistry(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(nil).Execute(context.Background(), []statex.ToolInvocationRequest{{ID: "c1", Name: "x"}})
	assert.ErrorIs(t, err, contractx.ErrValidation)
}

func TestBackendErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := error(&BackendError{Code: CodeFailed, Message: "failed", Err: cause})
	assert.ErrorIs(t, err, contractx.ErrBackendOperation)
	assert.ErrorIs(t, err, cause)
}

func TestExecutorPanickingToolBecomesErrorResult(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.MustRegister(
		contractx.ToolDescriptor{
			Name:   "request_new_id_card",
			Params: []contractx.ParamSpec{memberParam},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				var card map[string]string
				card["member_id"] = args["member_id"].(string)
				return card, nil
			},
		},
		echoTool("get_id_list", memberParam),
	)

	out, err := NewExecutor(reg).Execute(context.Background(), []statex.ToolInvocationRequest{
		{ID: "c1", Name: "request_new_id_card", Arguments: map[string]any{"member_id": "12345"}},
		{ID: "c2", Name: "get_id_list", Arguments: map[string]any{"member_id": "12345"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].IsError)
	assert.Equal(t, "c1", out[0].ToolCallID)
	var payload errorPayload
	require.NoError(t, json.Unmarshal([]byte(out[0].Content), &payload))
	assert.Equal(t, CodeFailed, payload.Error)
	assert.NotContains(t, out[0].Content, "nil map")

	assert.False(t, out[1].IsError, out[1].Content)
	assert.Equal(t, "c2", out[1].ToolCallID)
}
