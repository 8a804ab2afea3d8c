package domain

import "errors"

// Sentinel errors for room and membership operations.
var (
	ErrRoomExists       = errors.New("room already exists")
	ErrRoomNotFound     = errors.New("room not found")
	ErrBanned           = errors.New("user is banned from room")
	ErrMuted            = errors.New("user is muted in room")
	ErrNotMember        = errors.New("user is not a member of room")
	ErrUnauthorized     = errors.New("user lacks moderator capability")
	ErrMessageTooLong   = errors.New("message content exceeds limit")
	ErrMalformedCommand = errors.New("malformed moderation command")
)

// Error codes surfaced to clients.
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAlreadyExists  = "ALREADY_EXISTS"
	ErrCodeBanned         = "BANNED"
	ErrCodeMuted          = "MUTED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeMessageTooLong = "MESSAGE_TOO_LONG"
	ErrCodeNotInRoom      = "NOT_IN_ROOM"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// ErrorEvent is the error shape sent back to the offending client.
// Errors are never fatal to the connection; the read loop continues.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{Type: "error", Code: code, Message: message}
}

// ErrorCode maps a domain error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomExists):
		return ErrCodeAlreadyExists
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrBanned):
		return ErrCodeBanned
	case errors.Is(err, ErrMuted):
		return ErrCodeMuted
	case errors.Is(err, ErrNotMember):
		return ErrCodeNotInRoom
	case errors.Is(err, ErrUnauthorized):
		return ErrCodeUnauthorized
	case errors.Is(err, ErrMessageTooLong):
		return ErrCodeMessageTooLong
	case errors.Is(err, ErrMalformedCommand):
		return ErrCodeBadRequest
	default:
		return ErrCodeInternalError
	}
}
