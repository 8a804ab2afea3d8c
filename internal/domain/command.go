package domain

import "strings"

// ModerationAction identifies a privileged operation against a user's
// standing in a room.
type ModerationAction string

const (
	ActionKick   ModerationAction = "kick"
	ActionBan    ModerationAction = "ban"
	ActionUnban  ModerationAction = "unban"
	ActionMute   ModerationAction = "mute"
	ActionUnmute ModerationAction = "unmute"
)

// ModerationCommand is the tagged form every command is reduced to
// before any policy code runs.
type ModerationCommand struct {
	Action ModerationAction `json:"action"`
	Target string           `json:"target"`
}

var prefixActions = map[string]ModerationAction{
	"/kick":   ActionKick,
	"/ban":    ActionBan,
	"/unban":  ActionUnban,
	"/mute":   ActionMute,
	"/unmute": ActionUnmute,
}

// Moderation resolves the moderation command carried by the message,
// if any. The structured Command field wins; otherwise the legacy
// "/<action> <target>" content grammar is recognised. A structured
// command with an unknown action or empty target fails with
// ErrMalformedCommand rather than degrading into an ordinary message.
// Content that merely looks command-like stays an ordinary message.
func (m *ChatMessage) Moderation() (ModerationCommand, bool, error) {
	if m.Command != nil {
		if _, ok := validAction(m.Command.Action); !ok || m.Command.Target == "" {
			return ModerationCommand{}, false, ErrMalformedCommand
		}
		return *m.Command, true, nil
	}

	if !strings.HasPrefix(m.Content, "/") {
		return ModerationCommand{}, false, nil
	}
	fields := strings.Fields(m.Content)
	if len(fields) != 2 {
		return ModerationCommand{}, false, nil
	}
	action, ok := prefixActions[fields[0]]
	if !ok {
		return ModerationCommand{}, false, nil
	}
	return ModerationCommand{Action: action, Target: fields[1]}, true, nil
}

func validAction(a ModerationAction) (ModerationAction, bool) {
	switch a {
	case ActionKick, ActionBan, ActionUnban, ActionMute, ActionUnmute:
		return a, true
	}
	return "", false
}
