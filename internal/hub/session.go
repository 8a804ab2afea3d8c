package hub

import (
	"sync"
	"time"
)

// Session is the per-connection record: the self-declared user name
// and the room the connection is currently associated with (at most
// one). The room back-reference is kept consistent with room
// membership by updating both inside the same store critical section.
type Session struct {
	mu           sync.RWMutex
	user         string
	roomID       string
	createdAt    time.Time
	lastActiveAt time.Time
}

func NewSession(user string) *Session {
	now := time.Now()
	return &Session{
		user:         user,
		createdAt:    now,
		lastActiveAt: now,
	}
}

func (s *Session) SetUser(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.lastActiveAt = time.Now()
}

func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) JoinRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.lastActiveAt = time.Now()
}

func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.lastActiveAt = time.Now()
}

func (s *Session) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

func (s *Session) InRoom() bool {
	return s.CurrentRoom() != ""
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}
