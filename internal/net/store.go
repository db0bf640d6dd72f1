package net

// SessionStore holds active sessions. Accessed only from the tick loop
// goroutine, so no locking is needed.
type SessionStore struct {
	sessions map[uint32]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint32]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	st.sessions[s.ID] = s
}

func (st *SessionStore) Remove(id uint32) {
	delete(st.sessions, id)
}

func (st *SessionStore) Get(id uint32) *Session {
	return st.sessions[id]
}

func (st *SessionStore) Count() int {
	return len(st.sessions)
}

// Raw exposes the underlying map for iteration with removal.
func (st *SessionStore) Raw() map[uint32]*Session {
	return st.sessions
}

func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, s := range st.sessions {
		fn(s)
	}
}
