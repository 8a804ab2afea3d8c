// Package session drives the game-room lifecycle: create, join,
// leave, readiness toggles and board updates. Each transition mutates
// room state and fans out the resulting events inside one room
// critical section, so a join racing a leave can never broadcast to a
// half-updated membership.
package session

import (
	"context"

	"github.com/Shaytris/Obsidian/internal/audit"
	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/store"
)

type StateMachine struct {
	store *store.Store
	hub   *hub.Hub
}

func New(st *store.Store, h *hub.Hub) *StateMachine {
	return &StateMachine{store: st, hub: h}
}

// CreateRoom creates the room with the caller as sole member and
// replies RoomCreated. Fails with ErrRoomExists on an ID collision.
// A caller already in a room leaves it first.
func (m *StateMachine) CreateRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if err := m.store.CreateRoom(roomID); err != nil {
		return err
	}
	if c.Session.InRoom() {
		m.LeaveRoom(ctx, c)
	}

	user := c.Session.User()
	return m.store.Update(roomID, func(r *store.Room) error {
		if err := r.AddMember(user); err != nil {
			return err
		}
		m.hub.JoinRoom(roomID, user, c)
		c.Session.JoinRoom(roomID)
		audit.Log(ctx, audit.ActionJoin, user, roomID, "room created")
		return c.SendEvent(&domain.RoomCreatedEvent{Type: domain.GameTypeRoomCreated, RoomID: roomID})
	})
}

// JoinRoom adds the caller to an existing room, replies JoinedRoom to
// the caller and announces PlayerJoined to the members that were
// already there. Joining the current room again only repeats the
// JoinedRoom reply. Fails with ErrRoomNotFound or ErrBanned, in which
// case the caller keeps their current room.
func (m *StateMachine) JoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	user := c.Session.User()

	if cur := c.Session.CurrentRoom(); cur == roomID && cur != "" {
		return c.SendEvent(&domain.JoinedRoomEvent{Type: domain.GameTypeJoinedRoom, RoomID: roomID})
	}

	// Validate the target before giving up the current seat; a failed
	// join must leave the caller where they were.
	if err := m.store.View(roomID, func(r *store.Room) error {
		if r.IsBanned(user) {
			return domain.ErrBanned
		}
		return nil
	}); err != nil {
		return err
	}

	if c.Session.InRoom() {
		m.LeaveRoom(ctx, c)
	}

	return m.store.Update(roomID, func(r *store.Room) error {
		if err := r.AddMember(user); err != nil {
			return err
		}
		m.hub.JoinRoom(roomID, user, c)
		c.Session.JoinRoom(roomID)
		audit.Log(ctx, audit.ActionJoin, user, roomID, "player joined room")

		if err := c.SendEvent(&domain.JoinedRoomEvent{Type: domain.GameTypeJoinedRoom, RoomID: roomID}); err != nil {
			return err
		}
		return m.hub.BroadcastEventExcept(roomID, user,
			&domain.PlayerJoinedEvent{Type: domain.GameTypePlayerJoined, PlayerID: user})
	})
}

// LeaveRoom removes the caller from its current room and broadcasts
// PlayerLeft to the remaining members. Not being in a room is a no-op,
// not an error. Returns the room left, if any.
func (m *StateMachine) LeaveRoom(ctx context.Context, c *hub.Client) (string, error) {
	roomID := c.Session.CurrentRoom()
	if roomID == "" {
		return "", nil
	}

	user := c.Session.User()
	err := m.store.Update(roomID, func(r *store.Room) error {
		r.RemoveMember(user)
		m.hub.LeaveRoom(roomID, user)
		c.Session.LeaveRoom()
		audit.Log(ctx, audit.ActionLeave, user, roomID, "player left room")
		return m.hub.BroadcastEvent(roomID,
			&domain.PlayerLeftEvent{Type: domain.GameTypePlayerLeft, PlayerID: user})
	})
	return roomID, err
}

// SetReady updates the caller's ready flag and broadcasts PlayerReady
// to every current member, the caller included.
func (m *StateMachine) SetReady(ctx context.Context, c *hub.Client, ready bool) error {
	roomID := c.Session.CurrentRoom()
	if roomID == "" {
		return domain.ErrNotMember
	}

	user := c.Session.User()
	return m.store.Update(roomID, func(r *store.Room) error {
		if !r.IsMember(user) {
			return domain.ErrNotMember
		}
		r.SetReady(user, ready)
		return m.hub.BroadcastEvent(roomID,
			&domain.PlayerReadyEvent{Type: domain.GameTypePlayerReady, PlayerID: user, Ready: ready})
	})
}

// UpdateBoard stores the caller's board and piece and broadcasts the
// update to every current member.
func (m *StateMachine) UpdateBoard(ctx context.Context, c *hub.Client, board [][]int, piece string) error {
	roomID := c.Session.CurrentRoom()
	if roomID == "" {
		return domain.ErrNotMember
	}

	user := c.Session.User()
	return m.store.Update(roomID, func(r *store.Room) error {
		if !r.IsMember(user) {
			return domain.ErrNotMember
		}
		r.SetBoard(user, board, piece)
		return m.hub.BroadcastEvent(roomID,
			&domain.BoardUpdateEvent{Type: domain.GameTypeBoardUpdate, PlayerID: user, Board: board, Piece: piece})
	})
}
