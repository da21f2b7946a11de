package service

import (
	"sync"
	"time"

	"fitgym_server/server/presence/domain"
)

// StatusStore remembers each user's last meaningful status and last-seen time
// across connection churn. Entries live for the process lifetime; disconnects
// never write a status here, so a reconnect can restore the real prior state.
type StatusStore struct {
	mu   sync.RWMutex
	last map[string]domain.UserStatus
	seen map[string]time.Time
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		last: map[string]domain.UserStatus{},
		seen: map[string]time.Time{},
	}
}

// Set records a status change. OFFLINE and invalid values are ignored so the
// store only ever holds restorable statuses.
func (s *StatusStore) Set(userID string, status domain.UserStatus) {
	if userID == "" || status == domain.StatusOffline || !status.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[userID] = status
	s.seen[userID] = time.Now()
}

// Last returns the last recorded status, defaulting to ONLINE when the user
// has no history.
func (s *StatusStore) Last(userID string) domain.UserStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.last[userID]; ok {
		return status
	}
	return domain.StatusOnline
}

func (s *StatusStore) Known(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.last[userID]
	return ok
}

// MarkSeen records when a user was last observed, used for the OFFLINE view
// shown to friends after a disconnect.
func (s *StatusStore) MarkSeen(userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[userID] = at
}

func (s *StatusStore) LastSeen(userID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.seen[userID]
	return at, ok
}
