package hub

import "errors"

// Error codes sent in error envelopes.
const (
	CodeMessageParse       = "MESSAGE_PARSE_ERROR"
	CodeUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"
	CodeAuthTokenRequired  = "AUTH_TOKEN_REQUIRED"
	CodeAuthFailed         = "AUTH_FAILED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeRoomIDRequired     = "ROOM_ID_REQUIRED"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeJoinRoomFailed     = "JOIN_ROOM_FAILED"
	CodeNotRoomMember      = "NOT_ROOM_MEMBER"
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeMessageTooLong     = "MESSAGE_TOO_LONG"
	CodeMessageSendFailed  = "MESSAGE_SEND_FAILED"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeFocusUpdateFailed  = "FOCUS_UPDATE_FAILED"
	CodeInvalidChallenge   = "INVALID_CHALLENGE"
	CodeUserOffline        = "USER_OFFLINE"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeChallengeFailed    = "CHALLENGE_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

var ErrShuttingDown = errors.New("hub is shutting down")

// ProtocolError is reported to the sender as an error envelope. It never
// closes the connection.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string { return e.Code + ": " + e.Message }

func protocolError(code, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

var (
	errAuthRequired    = protocolError(CodeAuthRequired, "Authentication required")
	errRoomIDRequired  = protocolError(CodeRoomIDRequired, "Room ID required")
	errNotRoomMember   = protocolError(CodeNotRoomMember, "You are not a member of this room")
	errInternal        = protocolError(CodeInternal, "Internal server error")
	errRateLimited     = protocolError(CodeRateLimited, "Too many messages, slow down")
	errMalformedFrame  = protocolError(CodeMessageParse, "Invalid message format")
	errUnknownKind     = protocolError(CodeUnknownMessageType, "Unknown message type")
	errTokenRequired   = protocolError(CodeAuthTokenRequired, "Authentication token required")
	errAuthFailed      = protocolError(CodeAuthFailed, "Invalid authentication token")
	errUserNotFound    = protocolError(CodeUserNotFound, "User not found")
	errRoomNotFound    = protocolError(CodeRoomNotFound, "Room not found or inactive")
	errJoinFailed      = protocolError(CodeJoinRoomFailed, "Failed to join room")
	errEmptyMessage    = protocolError(CodeInvalidMessage, "Message content required")
	errSendFailed      = protocolError(CodeMessageSendFailed, "Failed to send message")
	errSessionNotFound = protocolError(CodeSessionNotFound, "Focus session not found")
	errFocusFailed     = protocolError(CodeFocusUpdateFailed, "Failed to share focus session update")
	errBadChallenge    = protocolError(CodeInvalidChallenge, "Target user and game are required")
	errUserOffline     = protocolError(CodeUserOffline, "Target user is not online")
	errGameNotFound    = protocolError(CodeGameNotFound, "Game not found")
	errChallengeFailed = protocolError(CodeChallengeFailed, "Failed to send game challenge")
)
