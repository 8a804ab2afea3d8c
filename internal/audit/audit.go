package audit

import (
	"context"

	"github.com/Shaytris/Obsidian/pkg/log"
)

// Audit actions.
const (
	ActionJoin          = "hub.join"
	ActionLeave         = "hub.leave"
	ActionDisconnect    = "hub.disconnect"
	ActionRejectMessage = "hub.reject_message"

	ActionKick   = "moderation.kick"
	ActionBan    = "moderation.ban"
	ActionUnban  = "moderation.unban"
	ActionMute   = "moderation.mute"
	ActionUnmute = "moderation.unmute"
	ActionDenied = "moderation.denied"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldTarget = "target"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, user, roomID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUser, user).
		Str(log.FieldRoomID, roomID).
		Msg(msg)
}

// LogWithTarget emits an audit log naming the user a command acted on.
func LogWithTarget(ctx context.Context, action, user, roomID, target, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUser, user).
		Str(log.FieldRoomID, roomID).
		Str(FieldTarget, target).
		Msg(msg)
}
