package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultMaxConcurrency = 4

// Error codes carried in error tool results.
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArguments = "invalid_arguments"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
	CodeFailed           = "failed"
	CodeCancelled        = "cancelled"
	CodeSkipped          = "skipped"
)

// BackendError is a backend failure already reduced to a code and a message
// that is safe to show the model.
type BackendError struct {
	Code    string
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	return e.Message
}

func (e *BackendError) Unwrap() []error {
	return []error{contractx.ErrBackendOperation, e.Err}
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ExecutorOption func(*Executor)

func WithMaxConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// Executor runs the tool requests of one assistant message and turns every
// outcome, failures included, into a tool result message.
type Executor struct {
	registry       *Registry
	maxConcurrency int
	now            func() time.Time
}

var _ contractx.ToolRunner = (*Executor)(nil)

func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:       registry,
		maxConcurrency: defaultMaxConcurrency,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute returns one result per request, in request order. The only error
// is a broken registry; every per-request failure becomes an error result.
func (e *Executor) Execute(ctx context.Context, reqs []statex.ToolInvocationRequest) ([]statex.Message, error) {
	if e == nil || e.registry == nil {
		return nil, fmt.Errorf("%w: tool registry is nil", contractx.ErrValidation)
	}
	if len(reqs) == 0 {
		return nil, nil
	}

	mapper := iter.Mapper[statex.ToolInvocationRequest, statex.Message]{MaxGoroutines: e.maxConcurrency}
	return mapper.MapErr(reqs, func(req *statex.ToolInvocationRequest) (statex.Message, error) {
		return e.invoke(ctx, *req)
	})
}

func (e *Executor) invoke(ctx context.Context, req statex.ToolInvocationRequest) (statex.Message, error) {
	ent, err := e.registry.resolve(req.Name)
	if err != nil {
		return e.failure(req, CodeUnknownTool, fmt.Sprintf("tool %q is not available", req.Name)), nil
	}
	if ent.desc.Func == nil {
		return statex.Message{}, fmt.Errorf("%w: tool=%s has no function", contractx.ErrValidation, req.Name)
	}

	args, err := ent.validator.Prepare(req.Arguments)
	if err != nil {
		return e.failure(req, CodeInvalidArguments, err.Error()), nil
	}

	if err := ctx.Err(); err != nil {
		return e.failure(req, CodeCancelled, "tool call was cancelled"), nil
	}

	out, err := callTool(ctx, ent.desc, args)
	if err != nil {
		code, msg := classify(ctx, err)
		return e.failure(req, code, msg), nil
	}

	content, err := encodeResult(out)
	if err != nil {
		return e.failure(req, CodeFailed, "tool returned an unreadable result"), nil
	}
	return statex.NewToolResultMessage(req.ID, req.Name, content, false, e.now()), nil
}

// callTool turns a panic in the bound func into an ordinary failure.
func callTool(ctx context.Context, desc contractx.ToolDescriptor, args map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", desc.Name).
				Interface("panic", r).
				Msg("tool panicked")
			out, err = nil, fmt.Errorf("tool %s panicked: %v", desc.Name, r)
		}
	}()
	return desc.Func(ctx, args)
}

func (e *Executor) failure(req statex.ToolInvocationRequest, code, msg string) statex.Message {
	log.Warn().
		Str("tool", req.Name).
		Str("tool_call_id", req.ID).
		Str("code", code).
		Msg("tool invocation failed")
	return ErrorResult(req, code, msg, e.now())
}

// ErrorResult builds the error tool result for req.
func ErrorResult(req statex.ToolInvocationRequest, code, msg string, now time.Time) statex.Message {
	payload, err := json.Marshal(errorPayload{Error: code, Message: msg})
	if err != nil {
		payload = []byte(`{"error":"` + code + `"}`)
	}
	return statex.NewToolResultMessage(req.ID, req.Name, string(payload), true, now)
}

func classify(ctx context.Context, err error) (string, string) {
	var be *BackendError
	switch {
	case errors.As(err, &be):
		return be.Code, be.Message
	case errors.Is(err, contractx.ErrArgumentValidation):
		return CodeInvalidArguments, err.Error()
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled, "tool call was cancelled"
	default:
		return CodeFailed, "the backend operation failed"
	}
}

func encodeResult(out any) (string, error) {
	switch v := out.(type) {
	case nil:
		return "{}", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
