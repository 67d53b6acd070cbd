// Package session holds in-flight goal-creation dialog state, keyed per
// account. The store is shared by the dispatcher and the expiry sweep task;
// all access goes through the store's mutex, so interleaved dialogs from
// different accounts never observe each other's state.
package session

import (
	"sync"
	"time"
)

// Phase is the goal-creation dialog phase for one account.
type Phase int

const (
	// PhaseIdle means no goal creation is in progress.
	PhaseIdle Phase = iota
	// PhaseChoosingCategory means a category list was offered and the next
	// command is expected to pick one.
	PhaseChoosingCategory
	// PhaseAwaitingTitle means a category was picked and the next free-text
	// message becomes the goal title.
	PhaseAwaitingTitle
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChoosingCategory:
		return "choosing_category"
	case PhaseAwaitingTitle:
		return "awaiting_title"
	default:
		return "unknown"
	}
}

// Session is one account's pending goal-creation dialog. The zero value is
// an idle session.
type Session struct {
	Phase         Phase
	CategoryID    int64
	CategoryTitle string
	UpdatedAt     time.Time
}

// Store keeps sessions keyed by account ID behind a mutex.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]Session

	now func() time.Time // overridable in tests
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Get returns the account's session, or an idle zero session if none is pending.
func (s *Store) Get(accountID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[accountID]
}

// Put stores the account's session, stamping its update time.
func (s *Store) Put(accountID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = s.now()
	s.sessions[accountID] = sess
}

// Clear drops any pending session for the account. Clearing an account
// without a session is a no-op.
func (s *Store) Clear(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accountID)
}

// Len returns the number of pending sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions that have not been touched within ttl and returns
// the number evicted.
func (s *Store) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	evicted := 0
	for accountID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, accountID)
			evicted++
		}
	}
	return evicted
}
