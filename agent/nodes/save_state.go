package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	statex "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/state"
)

func ValidateAndSaveState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	now time.Time,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.Conversation.Touch(now)
	if err := in.Conversation.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Conversation); err != nil {
		return nil, err
	}

	return in, nil
}
