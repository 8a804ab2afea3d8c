package service

import (
	"context"

	"github.com/Shaytris/Obsidian/internal/domain"
	"github.com/Shaytris/Obsidian/internal/hub"
)

// ChatService routes decoded chat envelopes: moderation commands to
// the policy, ordinary messages through validation, the mute check,
// the log, persistence and broadcast.
type ChatService interface {
	HandleEnvelope(ctx context.Context, c *hub.Client, msg *domain.ChatMessage) error
	HandleDisconnect(ctx context.Context, c *hub.Client) error
	HandleEviction(c *hub.Client)
	Start(ctx context.Context) error
	Stop() error
}

// GameService routes decoded game events to the session state machine.
type GameService interface {
	HandleConnect(ctx context.Context, c *hub.Client) error
	HandleCreateRoom(ctx context.Context, c *hub.Client, roomID string) error
	HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error
	HandleLeaveRoom(ctx context.Context, c *hub.Client) error
	HandleSetReady(ctx context.Context, c *hub.Client, ready bool) error
	HandleBoardUpdate(ctx context.Context, c *hub.Client, board [][]int, piece string) error
	HandleDisconnect(ctx context.Context, c *hub.Client) error
	HandleEviction(c *hub.Client)
}

// sendError reports a failed operation back to the offending client
// only. Errors are per-message; the connection stays up.
func sendError(c *hub.Client, err error) {
	c.SendEvent(domain.NewErrorEvent(domain.ErrorCode(err), err.Error()))
}
