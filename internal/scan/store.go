package scan

import (
	"fmt"
	"sync"
	"time"
)

// Store keeps sessions in memory with a TTL sweep so abandoned scans do not
// leak. All mutation goes through Update and Transition so state changes
// are serialized per store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore creates a session store. Sessions untouched for ttl are swept by
// a background janitor; Close stops it.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put stores a session.
func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// Get returns a snapshot of a session. Sessions owned by another tenant
// are reported as not found rather than leaking their existence.
func (s *Store) Get(tenantID, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || session.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return snapshot(session), nil
}

// Update applies fn to the session under the store lock and bumps
// UpdatedAt. fn sees the live record; errors abort the update.
func (s *Store) Update(id string, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := fn(session); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	return nil
}

// Transition moves the session to status only if its current status is one
// of from. The compare-and-swap under the store lock is what serializes
// concurrent commits: the loser observes the new status and gets
// ErrInvalidState.
func (s *Store) Transition(id string, to Status, from ...Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	for _, f := range from {
		if session.Status == f {
			session.Status = to
			session.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, session.Status)
}

// Close stops the janitor.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) janitor() {
	interval := s.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if now.Sub(session.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// snapshot deep-copies the slices and map so callers can read the session
// without racing in-flight updates.
func snapshot(s *Session) *Session {
	out := *s
	out.ChannelIDs = append([]string(nil), s.ChannelIDs...)
	out.Messages = append(out.Messages[:0:0], s.Messages...)
	out.Tasks = append(out.Tasks[:0:0], s.Tasks...)
	out.CommittedIDs = append([]string(nil), s.CommittedIDs...)
	if s.ChannelErrors != nil {
		out.ChannelErrors = make(map[string]string, len(s.ChannelErrors))
		for k, v := range s.ChannelErrors {
			out.ChannelErrors[k] = v
		}
	}
	return &out
}
