package domain

import (
	"strings"
	"testing"
)

func TestValidateContentLength(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "", nil},
		{"short", "hello", nil},
		{"exactly at limit", strings.Repeat("a", MaxContentLength), nil},
		{"one over limit", strings.Repeat("a", MaxContentLength+1), ErrMessageTooLong},
		{"multibyte at limit", strings.Repeat("日", MaxContentLength), nil},
		{"multibyte over limit", strings.Repeat("日", MaxContentLength+1), ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ChatMessage{User: "alice", Channel: "general", Content: tt.content}
			if err := m.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewChatMessageAssignsID(t *testing.T) {
	m := NewChatMessage("alice", "hi", "general", "", nil)
	if m.ID == "" {
		t.Error("expected a generated ID")
	}
	if m.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestModerationStructuredCommand(t *testing.T) {
	m := &ChatMessage{
		User:    "mod",
		Channel: "general",
		Command: &ModerationCommand{Action: ActionBan, Target: "troll"},
	}

	cmd, ok, err := m.Moderation()
	if err != nil || !ok {
		t.Fatalf("expected a moderation command, got ok=%v err=%v", ok, err)
	}
	if cmd.Action != ActionBan || cmd.Target != "troll" {
		t.Errorf("got %+v", cmd)
	}
}

func TestModerationStructuredCommandWinsOverContent(t *testing.T) {
	m := &ChatMessage{
		User:    "mod",
		Channel: "general",
		Content: "/kick someone",
		Command: &ModerationCommand{Action: ActionMute, Target: "troll"},
	}

	cmd, ok, err := m.Moderation()
	if err != nil || !ok || cmd.Action != ActionMute || cmd.Target != "troll" {
		t.Errorf("structured command should win, got %+v ok=%v err=%v", cmd, ok, err)
	}
}

func TestModerationPrefixGrammar(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantOK  bool
		want    ModerationCommand
	}{
		{"kick", "/kick troll", true, ModerationCommand{ActionKick, "troll"}},
		{"ban", "/ban troll", true, ModerationCommand{ActionBan, "troll"}},
		{"unban", "/unban troll", true, ModerationCommand{ActionUnban, "troll"}},
		{"mute", "/mute troll", true, ModerationCommand{ActionMute, "troll"}},
		{"unmute", "/unmute troll", true, ModerationCommand{ActionUnmute, "troll"}},
		{"extra whitespace", "/kick   troll", true, ModerationCommand{ActionKick, "troll"}},
		{"ordinary message", "hello world", false, ModerationCommand{}},
		{"unknown verb", "/shrug troll", false, ModerationCommand{}},
		{"missing target", "/kick", false, ModerationCommand{}},
		{"too many fields", "/kick troll now", false, ModerationCommand{}},
		{"slash only", "/", false, ModerationCommand{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ChatMessage{User: "mod", Channel: "general", Content: tt.content}
			cmd, ok, err := m.Moderation()
			if err != nil {
				t.Fatalf("Moderation() err = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Moderation() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && cmd != tt.want {
				t.Errorf("Moderation() = %+v, want %+v", cmd, tt.want)
			}
		})
	}
}

func TestModerationRejectsMalformedStructuredCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  *ModerationCommand
	}{
		{"unknown action", &ModerationCommand{Action: "promote", Target: "troll"}},
		{"empty target", &ModerationCommand{Action: ActionKick}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ChatMessage{User: "mod", Channel: "general", Command: tt.cmd}
			_, ok, err := m.Moderation()
			if err != ErrMalformedCommand {
				t.Errorf("Moderation() err = %v, want ErrMalformedCommand", err)
			}
			if ok {
				t.Error("malformed command must not resolve")
			}
		})
	}
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrRoomExists, ErrCodeAlreadyExists},
		{ErrRoomNotFound, ErrCodeNotFound},
		{ErrBanned, ErrCodeBanned},
		{ErrMuted, ErrCodeMuted},
		{ErrNotMember, ErrCodeNotInRoom},
		{ErrUnauthorized, ErrCodeUnauthorized},
		{ErrMessageTooLong, ErrCodeMessageTooLong},
		{ErrMalformedCommand, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.code {
			t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.code)
		}
	}
}
