package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

// LoadOrCreateState resumes the stored conversation for the session, or
// starts a new one, and appends the user's message.
func LoadOrCreateState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := loadOrCreateState(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	if pending := conv.PendingRequests(); len(pending) > 0 {
		return nil, fmt.Errorf("%w: stored session has %d unresolved tool requests", statex.ErrInvalidConversation, len(pending))
	}

	conv.Append(statex.NewUserMessage(in.Text, in.Now))
	in.Conversation = conv
	return in, nil
}

func loadOrCreateState(
	ctx context.Context,
	store statex.Store,
	sessionID string,
	now time.Time,
) (*statex.ConversationState, error) {
	conv, err := store.Load(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}

	return statex.NewConversationState(sessionID, now), nil
}
