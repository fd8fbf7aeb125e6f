package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds the in-memory sessions. Sessions are independent
// conversations; nothing survives a restart.
type Store struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	generator Generator
	notifier  Notifier
}

func NewStore(generator Generator, notifier Notifier) *Store {
	return &Store{
		sessions:  make(map[uuid.UUID]*Session),
		generator: generator,
		notifier:  notifier,
	}
}

// Create starts an empty session.
func (st *Store) Create() *Session {
	s := NewSession(uuid.New(), st.generator, st.notifier)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session or ErrSessionNotFound.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete drops a session. Deleting an unknown id is a no-op.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
