package usecase

import (
	"sync"

	"github.com/FairHead/checktodo-server/internal/core/domain"
)

// Identity is the authenticated principal carried by the session context.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// IdentityFromUser derives the session identity from an account record.
func IdentityFromUser(user *domain.User) *Identity {
	if user == nil {
		return nil
	}
	return &Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.Profile.DisplayName,
	}
}

// SessionBroker is a process-wide observable of the current authenticated
// identity. Listeners receive the state at subscription time and every change
// after it; nil means signed out.
type SessionBroker struct {
	mu        sync.Mutex
	current   *Identity
	nextID    uint64
	listeners map[uint64]func(*Identity)
	closed    bool
}

// NewSessionBroker constructs a broker with no signed-in identity.
func NewSessionBroker() *SessionBroker {
	return &SessionBroker{listeners: make(map[uint64]func(*Identity))}
}

// Current returns the identity of the signed-in user, or nil.
func (b *SessionBroker) Current() *Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers a listener and immediately delivers the current state.
// The returned function removes the listener; calling it more than once is
// harmless.
func (b *SessionBroker) Subscribe(fn func(*Identity)) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	current := b.current
	b.mu.Unlock()

	fn(current)

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Set publishes a new identity to all listeners. Passing nil announces
// sign-out and drops any previously held identity.
func (b *SessionBroker) Set(identity *Identity) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.current = identity
	listeners := make([]func(*Identity), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

// Close drops the current identity and all listeners. Further Set and
// Subscribe calls are no-ops.
func (b *SessionBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.current = nil
	b.listeners = map[uint64]func(*Identity){}
}
