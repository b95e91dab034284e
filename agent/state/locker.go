package state

import (
	"context"
	"sync"
)

// SessionLocker serialises work per session id. Distinct sessions never
// block each other.
type SessionLocker struct {
	mu    sync.Mutex
	slots map[string]*sessionSlot
}

type sessionSlot struct {
	ch   chan struct{}
	refs int
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{slots: map[string]*sessionSlot{}}
}

// Lock blocks until the session is free or ctx is done. The returned func
// releases the session and must be called exactly once.
func (l *SessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[sessionID]
	if !ok {
		slot = &sessionSlot{ch: make(chan struct{}, 1)}
		l.slots[sessionID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(sessionID, slot)
		})
	}, nil
}

func (l *SessionLocker) release(sessionID string, slot *sessionSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, sessionID)
	}
}

// Active reports how many sessions currently hold or wait for a lock.
func (l *SessionLocker) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
