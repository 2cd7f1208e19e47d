package tsaotun

import "sync"

// Session remembers the last container an operation targeted, so callers can
// omit the container on follow-up operations. It is owned by the caller and
// handed to an Engine with WithSession.
type Session struct {
	mu   sync.Mutex
	last string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Use records id as the last active container. Empty ids are ignored.
func (s *Session) Use(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	s.last = id
	s.mu.Unlock()
}

// Forget clears the last active container if it is id.
func (s *Session) Forget(id string) {
	s.mu.Lock()
	if s.last == id {
		s.last = ""
	}
	s.mu.Unlock()
}

// Last returns the last active container, or "".
func (s *Session) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Resolve returns id, or the last active container when id is empty.
// It fails with ErrNullResource when neither is available.
func (s *Session) Resolve(id string) (string, error) {
	if id != "" {
		return id, nil
	}

	if last := s.Last(); last != "" {
		return last, nil
	}

	return "", ErrNullResource
}
