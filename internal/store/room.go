package store

import (
	"sort"

	"github.com/Shaytris/Obsidian/internal/domain"
)

// BoardState is the last-known board snapshot for one player.
type BoardState struct {
	Board [][]int
	Piece string
}

// Room holds all mutable state for one channel or game room: the
// member, ban, mute and moderator sets, the message log and the
// per-member session fields. Room methods do not lock; every access
// must happen inside Store.Update or Store.View, which serialize all
// operations on the same room.
type Room struct {
	ID string

	members    map[string]struct{}
	banned     map[string]struct{}
	muted      map[string]struct{}
	moderators map[string]struct{}

	messages   []*domain.ChatMessage
	maxHistory int

	ready  map[string]bool
	boards map[string]BoardState
}

func newRoom(id string, maxHistory int) *Room {
	return &Room{
		ID:         id,
		members:    make(map[string]struct{}),
		banned:     make(map[string]struct{}),
		muted:      make(map[string]struct{}),
		moderators: make(map[string]struct{}),
		maxHistory: maxHistory,
		ready:      make(map[string]bool),
		boards:     make(map[string]BoardState),
	}
}

// AddMember inserts the user unless banned. The ban check and the
// insert happen in the same critical section, so a banned user is
// never briefly a member. The first user to join an unmoderated room
// receives the moderator capability.
func (r *Room) AddMember(user string) error {
	if _, banned := r.banned[user]; banned {
		return domain.ErrBanned
	}
	if len(r.moderators) == 0 {
		r.moderators[user] = struct{}{}
	}
	r.members[user] = struct{}{}
	return nil
}

// RemoveMember drops the user's membership and session fields. Ban and
// mute state are untouched, so a kicked user may rejoin.
func (r *Room) RemoveMember(user string) {
	delete(r.members, user)
	delete(r.ready, user)
	delete(r.boards, user)
}

func (r *Room) IsMember(user string) bool {
	_, ok := r.members[user]
	return ok
}

// Members returns the member set in stable order.
func (r *Room) Members() []string {
	out := make([]string, 0, len(r.members))
	for u := range r.members {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (r *Room) MemberCount() int {
	return len(r.members)
}

// Ban adds the user to the ban set and evicts any current membership.
func (r *Room) Ban(user string) {
	r.banned[user] = struct{}{}
	r.RemoveMember(user)
}

// Unban removes the ban only; membership is not restored.
func (r *Room) Unban(user string) {
	delete(r.banned, user)
}

func (r *Room) IsBanned(user string) bool {
	_, ok := r.banned[user]
	return ok
}

func (r *Room) Mute(user string) {
	r.muted[user] = struct{}{}
}

func (r *Room) Unmute(user string) {
	delete(r.muted, user)
}

func (r *Room) IsMuted(user string) bool {
	_, ok := r.muted[user]
	return ok
}

func (r *Room) AddModerator(user string) {
	r.moderators[user] = struct{}{}
}

func (r *Room) IsModerator(user string) bool {
	_, ok := r.moderators[user]
	return ok
}

// AppendMessage validates the message and appends it to the log,
// trimming the oldest entries when a retention bound is configured.
func (r *Room) AppendMessage(msg *domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	r.messages = append(r.messages, msg)
	if r.maxHistory > 0 && len(r.messages) > r.maxHistory {
		r.messages = r.messages[len(r.messages)-r.maxHistory:]
	}
	return nil
}

// Messages returns up to limit of the most recent log entries, oldest
// first. limit <= 0 returns the whole log. The slice is a copy.
func (r *Room) Messages(limit int) []*domain.ChatMessage {
	n := len(r.messages)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*domain.ChatMessage, n)
	copy(out, r.messages[len(r.messages)-n:])
	return out
}

func (r *Room) SetReady(user string, ready bool) {
	r.ready[user] = ready
}

func (r *Room) Ready(user string) bool {
	return r.ready[user]
}

// ReadyStates returns a copy of the per-member ready flags.
func (r *Room) ReadyStates() map[string]bool {
	out := make(map[string]bool, len(r.ready))
	for u, v := range r.ready {
		out[u] = v
	}
	return out
}

func (r *Room) SetBoard(user string, board [][]int, piece string) {
	r.boards[user] = BoardState{Board: board, Piece: piece}
}

func (r *Room) Board(user string) (BoardState, bool) {
	b, ok := r.boards[user]
	return b, ok
}
