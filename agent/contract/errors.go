package contract

import "errors"

var (
	ErrRecoverableLLM = errors.New("recoverable llm failure")
	ErrContentPolicy  = errors.New("llm refused request by content policy")
	ErrValidation     = errors.New("validation failed")

	ErrDuplicateTool      = errors.New("tool already registered")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrArgumentValidation = errors.New("tool arguments are invalid")
	ErrBackendOperation   = errors.New("backend operation failed")

	ErrMaxIterationsExceeded = errors.New("max tool iterations exceeded")
	ErrRouterContract        = errors.New("router called on non-assistant message")
)
