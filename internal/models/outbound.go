package models

import (
	"encoding/json"
	"time"
)

// Outbound message kinds.
const (
	TypeConnectionEstablished = "connection_established"
	TypeAuthSuccess           = "auth_success"
	TypeRoomJoined            = "room_joined"
	TypeRoomLeft              = "room_left"
	TypeNewMessage            = "new_message"
	TypeUserJoinedRoom        = "user_joined_room"
	TypeUserLeftRoom          = "user_left_room"
	TypeUserTyping            = "user_typing"
	TypeHeartbeatAck          = "heartbeat_ack"
	TypeServerShutdown        = "server_shutdown"
	TypeFriendFocusUpdate     = "friend_focus_update"
	TypeChallengeReceived     = "game_challenge_received"
	TypeChallengeSent         = "game_challenge_sent"
	TypeError                 = "error"
)

// Outbound is any server envelope. Every envelope embeds Header.
type Outbound interface {
	Kind() string
}

type Header struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (h Header) Kind() string { return h.Type }

func newHeader(kind string) Header {
	return Header{Type: kind, Timestamp: time.Now().UTC()}
}

type ConnectionEstablished struct {
	Header
	Message      string `json:"message"`
	ConnectionID string `json:"connection_id"`
}

type AuthSuccess struct {
	Header
	User *Identity `json:"user"`
}

type RoomJoined struct {
	Header
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

type RoomLeft struct {
	Header
	RoomID string `json:"room_id"`
}

type NewMessage struct {
	Header
	Message *MessageView `json:"message"`
}

// RoomPresence is used for both user_joined_room and user_left_room.
type RoomPresence struct {
	Header
	RoomID string  `json:"room_id"`
	User   UserRef `json:"user"`
}

type UserTyping struct {
	Header
	RoomID string  `json:"room_id"`
	User   UserRef `json:"user"`
	Typing bool    `json:"typing"`
}

type HeartbeatAck struct {
	Header
}

type ServerShutdown struct {
	Header
	Message string `json:"message"`
}

type FriendFocusUpdate struct {
	Header
	User    UserRef           `json:"user"`
	Session FocusSessionState `json:"session"`
}

type FocusSessionState struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ElapsedTime int64  `json:"elapsed_time"`
}

type ChallengeReceived struct {
	Header
	ChallengeID   string          `json:"challenge_id"`
	FromUser      UserRef         `json:"from_user"`
	Game          *Game           `json:"game"`
	ChallengeData json.RawMessage `json:"challenge_data,omitempty"`
}

type ChallengeSent struct {
	Header
	ChallengeID string `json:"challenge_id"`
	ToUserID    string `json:"to_user_id"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ErrorEnvelope struct {
	Header
	Error ErrorDetail `json:"error"`
}

func NewConnectionEstablished(connID, message string) *ConnectionEstablished {
	return &ConnectionEstablished{Header: newHeader(TypeConnectionEstablished), Message: message, ConnectionID: connID}
}

func NewAuthSuccess(user *Identity) *AuthSuccess {
	return &AuthSuccess{Header: newHeader(TypeAuthSuccess), User: user}
}

func NewRoomJoined(roomID, roomName string) *RoomJoined {
	return &RoomJoined{Header: newHeader(TypeRoomJoined), RoomID: roomID, RoomName: roomName}
}

func NewRoomLeft(roomID string) *RoomLeft {
	return &RoomLeft{Header: newHeader(TypeRoomLeft), RoomID: roomID}
}

func NewNewMessage(msg *MessageView) *NewMessage {
	return &NewMessage{Header: newHeader(TypeNewMessage), Message: msg}
}

func NewUserJoinedRoom(roomID string, user UserRef) *RoomPresence {
	return &RoomPresence{Header: newHeader(TypeUserJoinedRoom), RoomID: roomID, User: user}
}

func NewUserLeftRoom(roomID string, user UserRef) *RoomPresence {
	return &RoomPresence{Header: newHeader(TypeUserLeftRoom), RoomID: roomID, User: user}
}

func NewUserTyping(roomID string, user UserRef, typing bool) *UserTyping {
	return &UserTyping{Header: newHeader(TypeUserTyping), RoomID: roomID, User: user, Typing: typing}
}

func NewHeartbeatAck() *HeartbeatAck {
	return &HeartbeatAck{Header: newHeader(TypeHeartbeatAck)}
}

func NewServerShutdown(message string) *ServerShutdown {
	return &ServerShutdown{Header: newHeader(TypeServerShutdown), Message: message}
}

// NewFriendFocusUpdate carries only the sender's id and username.
func NewFriendFocusUpdate(user UserRef, update FocusSessionUpdate) *FriendFocusUpdate {
	return &FriendFocusUpdate{
		Header: newHeader(TypeFriendFocusUpdate),
		User:   UserRef{ID: user.ID, Username: user.Username},
		Session: FocusSessionState{
			ID:          update.SessionID,
			Status:      update.Status,
			ElapsedTime: update.ElapsedTime,
		},
	}
}

func NewChallengeReceived(challengeID string, from UserRef, game *Game, data json.RawMessage) *ChallengeReceived {
	return &ChallengeReceived{
		Header:        newHeader(TypeChallengeReceived),
		ChallengeID:   challengeID,
		FromUser:      from,
		Game:          game,
		ChallengeData: data,
	}
}

func NewChallengeSent(challengeID, toUserID string) *ChallengeSent {
	return &ChallengeSent{Header: newHeader(TypeChallengeSent), ChallengeID: challengeID, ToUserID: toUserID}
}

func NewError(code, message string) *ErrorEnvelope {
	return &ErrorEnvelope{Header: newHeader(TypeError), Error: ErrorDetail{Message: message, Code: code}}
}
