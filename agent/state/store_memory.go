package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps encoded conversations in process memory. Values are
// stored encoded so callers never share slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*ConversationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	s.mu.RLock()
	payload, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return DecodeConversation(payload)
}

func (s *MemoryStore) Save(ctx context.Context, st *ConversationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeConversation(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data[st.SessionID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}
