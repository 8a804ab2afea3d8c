package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Shaytris/Obsidian/internal/config"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{SendBuffer: 8}
}

func newTestClient(t *testing.T, h *Hub, id, user string) *Client {
	t.Helper()
	c := NewClient(id, h, nil, testConfig())
	c.Session.SetUser(user)
	h.Register(c)
	return c
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	default:
		t.Fatal("no payload queued")
		return nil
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected payload queued: %s", data)
	default:
	}
}

func TestBroadcastReachesAllRoomConnections(t *testing.T) {
	h := NewHub(testConfig())
	alice := newTestClient(t, h, "c1", "alice")
	bob := newTestClient(t, h, "c2", "bob")
	outsider := newTestClient(t, h, "c3", "carol")

	h.JoinRoom("general", "alice", alice)
	h.JoinRoom("general", "bob", bob)
	h.JoinRoom("random", "carol", outsider)

	h.Broadcast("general", []byte("hello"))

	if got := string(recv(t, alice)); got != "hello" {
		t.Errorf("alice got %q", got)
	}
	if got := string(recv(t, bob)); got != "hello" {
		t.Errorf("bob got %q", got)
	}
	assertEmpty(t, outsider)
}

func TestBroadcastExceptSkipsUser(t *testing.T) {
	h := NewHub(testConfig())
	alice := newTestClient(t, h, "c1", "alice")
	bob := newTestClient(t, h, "c2", "bob")

	h.JoinRoom("general", "alice", alice)
	h.JoinRoom("general", "bob", bob)

	h.BroadcastExcept("general", "alice", []byte("hi"))

	assertEmpty(t, alice)
	if got := string(recv(t, bob)); got != "hi" {
		t.Errorf("bob got %q", got)
	}
}

func TestBroadcastEmptyRoomIsNoOp(t *testing.T) {
	h := NewHub(testConfig())
	h.Broadcast("nobody-home", []byte("hello"))
}

func TestBroadcastEventMarshalsOnce(t *testing.T) {
	h := NewHub(testConfig())
	alice := newTestClient(t, h, "c1", "alice")
	h.JoinRoom("general", "alice", alice)

	if err := h.BroadcastEvent("general", map[string]string{"type": "test"}); err != nil {
		t.Fatalf("BroadcastEvent: %v", err)
	}

	var event map[string]string
	if err := json.Unmarshal(recv(t, alice), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event["type"] != "test" {
		t.Errorf("event = %v", event)
	}
}

func TestDeadPeerEvictionDoesNotBlockOthers(t *testing.T) {
	cfg := config.WebSocketConfig{SendBuffer: 1}
	h := NewHub(cfg)

	evicted := make(chan *Client, 1)
	h.SetEvictHandler(func(c *Client) {
		evicted <- c
	})

	healthy := NewClient("c1", h, nil, cfg)
	healthy.Session.SetUser("alice")
	h.Register(healthy)

	dead := NewClient("c2", h, nil, cfg)
	dead.Session.SetUser("bob")
	h.Register(dead)
	dead.Send <- []byte("stuck") // queue full, next send fails

	h.JoinRoom("general", "alice", healthy)
	h.JoinRoom("general", "bob", dead)

	h.Broadcast("general", []byte("hello"))

	if got := string(recv(t, healthy)); got != "hello" {
		t.Errorf("healthy peer got %q", got)
	}

	select {
	case c := <-evicted:
		if c.ID != "c2" {
			t.Errorf("evicted %s, want c2", c.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("dead peer was not evicted")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := h.ClientInRoom("general", "bob"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dead peer still bound to room")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUnregisterRemovesAllRoomBindings(t *testing.T) {
	h := NewHub(testConfig())
	alice := newTestClient(t, h, "c1", "alice")
	h.JoinRoom("general", "alice", alice)

	h.Unregister(alice)

	if _, ok := h.ClientInRoom("general", "alice"); ok {
		t.Error("binding should be gone after Unregister")
	}
	if h.RoomClientCount("general") != 0 {
		t.Error("room should be empty")
	}

	// Second Unregister must be a no-op, not a double close.
	h.Unregister(alice)

	if _, open := <-alice.Send; open {
		t.Error("send queue should be closed")
	}
}

func TestSnapshotIsStable(t *testing.T) {
	h := NewHub(testConfig())
	alice := newTestClient(t, h, "c1", "alice")
	bob := newTestClient(t, h, "c2", "bob")
	h.JoinRoom("general", "alice", alice)
	h.JoinRoom("general", "bob", bob)

	snap := h.Snapshot("general")
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}
	if snap[0].Session.User() != "alice" || snap[1].Session.User() != "bob" {
		t.Error("snapshot should be ordered by user")
	}

	// Bindings dropped after the snapshot do not affect it.
	h.LeaveRoom("general", "bob")
	if len(snap) != 2 {
		t.Error("snapshot must be a point-in-time copy")
	}
	if h.RoomClientCount("general") != 1 {
		t.Errorf("room count = %d, want 1", h.RoomClientCount("general"))
	}
}

func TestSendEventQueuesForOneClient(t *testing.T) {
	h := NewHub(testConfig())
	alice := newTestClient(t, h, "c1", "alice")
	bob := newTestClient(t, h, "c2", "bob")
	h.JoinRoom("general", "alice", alice)
	h.JoinRoom("general", "bob", bob)

	if err := alice.SendEvent(map[string]string{"type": "pong"}); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	recv(t, alice)
	assertEmpty(t, bob)
}
