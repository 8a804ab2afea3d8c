// Package moderation applies kick/ban/unban/mute/unmute commands
// against room state and the connection registry, gated on the issuer
// holding the moderator capability for that room.
package moderation

import (
	"context"
	"fmt"

	"github.com/Shaytris/Obsidian/internal/audit"
	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/hub"
	"github.com/Shaytris/Obsidian/internal/store"
)

type Policy struct {
	store *store.Store
	hub   *hub.Hub
}

func NewPolicy(st *store.Store, h *hub.Hub) *Policy {
	return &Policy{store: st, hub: h}
}

// Apply runs one moderation command against a room. The authorization
// check, the state change and the connection-registry change all
// commit in the same room critical section. Unauthorized commands are
// discarded with ErrUnauthorized.
func (p *Policy) Apply(ctx context.Context, roomID, issuer string, cmd domain.ModerationCommand) error {
	err := p.store.Update(roomID, func(r *store.Room) error {
		if !r.IsModerator(issuer) {
			return domain.ErrUnauthorized
		}

		switch cmd.Action {
		case domain.ActionKick:
			p.dropFromRoom(r, roomID, cmd.Target)
			audit.LogWithTarget(ctx, audit.ActionKick, issuer, roomID, cmd.Target, "user kicked")

		case domain.ActionBan:
			r.Ban(cmd.Target)
			p.detach(roomID, cmd.Target)
			audit.LogWithTarget(ctx, audit.ActionBan, issuer, roomID, cmd.Target, "user banned")

		case domain.ActionUnban:
			r.Unban(cmd.Target)
			audit.LogWithTarget(ctx, audit.ActionUnban, issuer, roomID, cmd.Target, "user unbanned")

		case domain.ActionMute:
			r.Mute(cmd.Target)
			audit.LogWithTarget(ctx, audit.ActionMute, issuer, roomID, cmd.Target, "user muted")

		case domain.ActionUnmute:
			r.Unmute(cmd.Target)
			audit.LogWithTarget(ctx, audit.ActionUnmute, issuer, roomID, cmd.Target, "user unmuted")

		default:
			return fmt.Errorf("unknown moderation action %q", cmd.Action)
		}
		return nil
	})
	if err == domain.ErrUnauthorized {
		audit.LogWithTarget(ctx, audit.ActionDenied, issuer, roomID, cmd.Target, "moderation command denied")
	}
	return err
}

// dropFromRoom removes membership without touching ban state, so a
// future rejoin succeeds.
func (p *Policy) dropFromRoom(r *store.Room, roomID, target string) {
	r.RemoveMember(target)
	p.detach(roomID, target)
}

// detach unbinds the target's connection from the room and clears its
// session back-reference. The socket itself stays open.
func (p *Policy) detach(roomID, target string) {
	if c, ok := p.hub.ClientInRoom(roomID, target); ok {
		c.Session.LeaveRoom()
	}
	p.hub.LeaveRoom(roomID, target)
}
