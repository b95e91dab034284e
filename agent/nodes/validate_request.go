package orchestratornode

import (
	"errors"
	"strings"
	"time"

	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply string
	State *statex.ConversationState
	// Exceeded is set when the turn stopped at the iteration bound.
	Exceeded bool
}

// GraphState is threaded through every node of one turn.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Conversation *statex.ConversationState

	// Iterations counts tool executions in this turn.
	Iterations int
	Exceeded   bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
