// Package store owns the room registry: membership, moderation sets,
// message logs and game session fields, serialized per room so that
// activity in one room never blocks another.
package store

import (
	"sort"
	"sync"

	"github.com/Shaytris/Obsidian/internal/domain"
)

type roomEntry struct {
	mu   sync.Mutex
	room *Room
}

// Store maps room IDs to room state. The outer lock only guards the
// map itself; each room carries its own mutex, taken for the duration
// of an Update or View call.
type Store struct {
	mu         sync.RWMutex
	rooms      map[string]*roomEntry
	maxHistory int
}

// New creates an empty store. maxHistory bounds each room's message
// log; zero keeps the log unbounded.
func New(maxHistory int) *Store {
	return &Store{
		rooms:      make(map[string]*roomEntry),
		maxHistory: maxHistory,
	}
}

// GetOrCreateChannel ensures a chat channel exists, creating it on
// first reference. Reports whether this call created it.
func (s *Store) GetOrCreateChannel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		return false
	}
	s.rooms[id] = &roomEntry{room: newRoom(id, s.maxHistory)}
	return true
}

// CreateRoom creates an empty game room. Fails with ErrRoomExists if
// the ID is taken. The creator joins through a regular Update so that
// membership and connection registration commit together.
func (s *Store) CreateRoom(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		return domain.ErrRoomExists
	}
	s.rooms[id] = &roomEntry{room: newRoom(id, s.maxHistory)}
	return nil
}

// Exists reports whether the room is known.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok
}

// RoomIDs returns all known room IDs in stable order.
func (s *Store) RoomIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Update runs fn with exclusive access to the room. Every mutation of
// room state goes through here; combined operations passed as one fn
// commit atomically with respect to all other room activity.
func (s *Store) Update(id string, fn func(*Room) error) error {
	s.mu.RLock()
	e, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrRoomNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.room)
}

// View is Update for readers. Room state must not escape fn.
func (s *Store) View(id string, fn func(*Room) error) error {
	return s.Update(id, fn)
}

// Convenience wrappers for single-operation callers.

func (s *Store) AddMember(roomID, user string) error {
	return s.Update(roomID, func(r *Room) error { return r.AddMember(user) })
}

func (s *Store) RemoveMember(roomID, user string) error {
	return s.Update(roomID, func(r *Room) error {
		r.RemoveMember(user)
		return nil
	})
}

func (s *Store) Ban(roomID, user string) error {
	return s.Update(roomID, func(r *Room) error {
		r.Ban(user)
		return nil
	})
}

func (s *Store) Unban(roomID, user string) error {
	return s.Update(roomID, func(r *Room) error {
		r.Unban(user)
		return nil
	})
}

func (s *Store) Mute(roomID, user string) error {
	return s.Update(roomID, func(r *Room) error {
		r.Mute(user)
		return nil
	})
}

func (s *Store) Unmute(roomID, user string) error {
	return s.Update(roomID, func(r *Room) error {
		r.Unmute(user)
		return nil
	})
}

func (s *Store) IsMuted(roomID, user string) bool {
	muted := false
	s.View(roomID, func(r *Room) error {
		muted = r.IsMuted(user)
		return nil
	})
	return muted
}

func (s *Store) AppendMessage(roomID string, msg *domain.ChatMessage) error {
	return s.Update(roomID, func(r *Room) error { return r.AppendMessage(msg) })
}
