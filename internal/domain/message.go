package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxContentLength is the upper bound on chat message content, in runes.
// Longer messages are rejected before they reach the log or any peer.
const MaxContentLength = 500

// ChatMessage is the inbound chat envelope. A moderation command may be
// carried either in the structured Command field or as a legacy
// "/<action> <target>" content prefix; both are resolved once at the
// decode boundary via Moderation().
type ChatMessage struct {
	ID      string             `json:"id"`
	User    string             `json:"user"`
	Content string             `json:"content"`
	Channel string             `json:"channel"`
	ReplyTo string             `json:"reply_to,omitempty"`
	Emotes  []string           `json:"emotes,omitempty"`
	Command *ModerationCommand `json:"command,omitempty"`

	Timestamp time.Time `json:"-"`
}

// NewChatMessage builds a message with a fresh ID.
func NewChatMessage(user, content, channel, replyTo string, emotes []string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.New().String(),
		User:      user,
		Content:   content,
		Channel:   channel,
		ReplyTo:   replyTo,
		Emotes:    emotes,
		Timestamp: time.Now().UTC(),
	}
}

// Validate reports whether the message content fits the length bound.
func (m *ChatMessage) Validate() error {
	if utf8.RuneCountInString(m.Content) > MaxContentLength {
		return ErrMessageTooLong
	}
	return nil
}

// BroadcastMessage is the outbound chat envelope fanned out to a
// channel. Content carries the emote-rendered form.
type BroadcastMessage struct {
	ID      string `json:"id"`
	User    string `json:"user"`
	Content string `json:"content"`
	Channel string `json:"channel"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// PersistedMessage is the shape handed to the persistence collaborator.
type PersistedMessage struct {
	MessageID string    `json:"message_id"`
	User      string    `json:"user"`
	Channel   string    `json:"channel"`
	Content   string    `json:"content"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
