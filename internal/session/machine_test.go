package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Shaytris/Obsidian/internal/config"
	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/store"
)

func newMachine(t *testing.T) (*StateMachine, *store.Store, *hub.Hub) {
	t.Helper()
	st := store.New(0)
	h := hub.NewHub(config.WebSocketConfig{SendBuffer: 16})
	return New(st, h), st, h
}

func newPlayer(t *testing.T, h *hub.Hub, id string) *hub.Client {
	t.Helper()
	c := hub.NewClient(id, h, nil, config.WebSocketConfig{SendBuffer: 16})
	c.Session.SetUser(id)
	h.Register(c)
	return c
}

func recvEvent(t *testing.T, c *hub.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	default:
		t.Fatal("no event queued")
		return nil
	}
}

func assertNoEvent(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected event: %s", data)
	default:
	}
}

func TestCreateRoom(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")

	if err := m.CreateRoom(context.Background(), p1, "room1"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	event := recvEvent(t, p1)
	if event["type"] != domain.GameTypeRoomCreated || event["room_id"] != "room1" {
		t.Errorf("event = %v", event)
	}

	if p1.Session.CurrentRoom() != "room1" {
		t.Error("creator should be in the room")
	}
	st.View("room1", func(r *store.Room) error {
		if !r.IsMember("p1") {
			t.Error("creator should be a member")
		}
		return nil
	})
	if _, ok := h.ClientInRoom("room1", "p1"); !ok {
		t.Error("creator's connection should be bound")
	}
}

func TestCreateRoomCollision(t *testing.T) {
	m, _, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	if err := m.CreateRoom(context.Background(), p1, "room1"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := m.CreateRoom(context.Background(), p2, "room1"); err != domain.ErrRoomExists {
		t.Errorf("duplicate CreateRoom = %v, want ErrRoomExists", err)
	}
	if p2.Session.InRoom() {
		t.Error("failed create must not join the caller")
	}
}

func TestJoinRoomAnnouncesToExistingMembers(t *testing.T) {
	m, _, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1) // RoomCreated

	if err := m.JoinRoom(context.Background(), p2, "room1"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	joined := recvEvent(t, p2)
	if joined["type"] != domain.GameTypeJoinedRoom || joined["room_id"] != "room1" {
		t.Errorf("joiner reply = %v", joined)
	}

	announced := recvEvent(t, p1)
	if announced["type"] != domain.GameTypePlayerJoined || announced["player_id"] != "p2" {
		t.Errorf("announcement = %v", announced)
	}
	// The joiner does not hear its own announcement.
	assertNoEvent(t, p2)
}

func TestJoinUnknownRoom(t *testing.T) {
	m, _, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")

	if err := m.JoinRoom(context.Background(), p1, "nope"); err != domain.ErrRoomNotFound {
		t.Errorf("JoinRoom = %v, want ErrRoomNotFound", err)
	}
}

func TestFailedJoinKeepsCurrentRoom(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)

	if err := m.JoinRoom(context.Background(), p1, "no-such-room"); err != domain.ErrRoomNotFound {
		t.Fatalf("JoinRoom = %v, want ErrRoomNotFound", err)
	}

	if p1.Session.CurrentRoom() != "room1" {
		t.Errorf("current room = %q, want room1", p1.Session.CurrentRoom())
	}
	st.View("room1", func(r *store.Room) error {
		if !r.IsMember("p1") {
			t.Error("failed join must not cost the caller their seat")
		}
		return nil
	})
	if _, ok := h.ClientInRoom("room1", "p1"); !ok {
		t.Error("connection should still be bound to room1")
	}
	assertNoEvent(t, p1)
}

func TestBannedJoinKeepsCurrentRoom(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)
	m.CreateRoom(context.Background(), p2, "room2")
	recvEvent(t, p2)

	st.Update("room1", func(r *store.Room) error {
		r.Ban("p2")
		return nil
	})

	if err := m.JoinRoom(context.Background(), p2, "room1"); err != domain.ErrBanned {
		t.Fatalf("JoinRoom = %v, want ErrBanned", err)
	}

	if p2.Session.CurrentRoom() != "room2" {
		t.Errorf("current room = %q, want room2", p2.Session.CurrentRoom())
	}
	st.View("room2", func(r *store.Room) error {
		if !r.IsMember("p2") {
			t.Error("failed join must not cost the caller their seat")
		}
		return nil
	})
}

func TestJoinCurrentRoomIsIdempotent(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)

	if err := m.JoinRoom(context.Background(), p1, "room1"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	event := recvEvent(t, p1)
	if event["type"] != domain.GameTypeJoinedRoom {
		t.Errorf("event = %v", event)
	}

	st.View("room1", func(r *store.Room) error {
		if got := r.MemberCount(); got != 1 {
			t.Errorf("member count = %d, want 1", got)
		}
		return nil
	})
}

func TestJoinWhileInAnotherRoomLeavesFirst(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)
	m.CreateRoom(context.Background(), p2, "room2")
	recvEvent(t, p2)

	if err := m.JoinRoom(context.Background(), p1, "room2"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	if p1.Session.CurrentRoom() != "room2" {
		t.Errorf("current room = %q, want room2", p1.Session.CurrentRoom())
	}
	st.View("room1", func(r *store.Room) error {
		if r.IsMember("p1") {
			t.Error("p1 should have left room1")
		}
		return nil
	})
}

func TestLeaveRoomBroadcastsPlayerLeft(t *testing.T) {
	m, _, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)
	m.JoinRoom(context.Background(), p2, "room1")
	recvEvent(t, p2)
	recvEvent(t, p1)

	roomID, err := m.LeaveRoom(context.Background(), p2)
	if err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	if roomID != "room1" {
		t.Errorf("left room = %q, want room1", roomID)
	}

	event := recvEvent(t, p1)
	if event["type"] != domain.GameTypePlayerLeft || event["player_id"] != "p2" {
		t.Errorf("event = %v", event)
	}
	if p2.Session.InRoom() {
		t.Error("session should be cleared")
	}
}

func TestLeaveWithoutRoomIsNoOp(t *testing.T) {
	m, _, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")

	roomID, err := m.LeaveRoom(context.Background(), p1)
	if err != nil || roomID != "" {
		t.Errorf("LeaveRoom = (%q, %v), want (\"\", nil)", roomID, err)
	}
}

func TestSetReadyBroadcastsToAllMembers(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)
	m.JoinRoom(context.Background(), p2, "room1")
	recvEvent(t, p2)
	recvEvent(t, p1)

	if err := m.SetReady(context.Background(), p2, true); err != nil {
		t.Fatalf("SetReady: %v", err)
	}

	// Both members hear it, the toggling player included.
	for _, p := range []*hub.Client{p1, p2} {
		event := recvEvent(t, p)
		if event["type"] != domain.GameTypePlayerReady || event["player_id"] != "p2" || event["ready"] != true {
			t.Errorf("%s got %v", p.ID, event)
		}
	}

	st.View("room1", func(r *store.Room) error {
		if !r.Ready("p2") {
			t.Error("ready flag should be stored")
		}
		return nil
	})
}

func TestSetReadyOutsideRoom(t *testing.T) {
	m, _, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")

	if err := m.SetReady(context.Background(), p1, true); err != domain.ErrNotMember {
		t.Errorf("SetReady = %v, want ErrNotMember", err)
	}
}

func TestUpdateBoardBroadcasts(t *testing.T) {
	m, st, h := newMachine(t)
	p1 := newPlayer(t, h, "p1")
	p2 := newPlayer(t, h, "p2")

	m.CreateRoom(context.Background(), p1, "room1")
	recvEvent(t, p1)
	m.JoinRoom(context.Background(), p2, "room1")
	recvEvent(t, p2)
	recvEvent(t, p1)

	board := [][]int{{1, 0}, {0, 1}}
	if err := m.UpdateBoard(context.Background(), p1, board, "T"); err != nil {
		t.Fatalf("UpdateBoard: %v", err)
	}

	event := recvEvent(t, p2)
	if event["type"] != domain.GameTypeBoardUpdate || event["player_id"] != "p1" || event["piece"] != "T" {
		t.Errorf("event = %v", event)
	}

	st.View("room1", func(r *store.Room) error {
		b, ok := r.Board("p1")
		if !ok || b.Piece != "T" {
			t.Errorf("board state = %+v ok=%v", b, ok)
		}
		return nil
	})
}
