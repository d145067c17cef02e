package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message kinds.
const (
	TypeAuth               = "auth"
	TypeJoinRoom           = "join_room"
	TypeLeaveRoom          = "leave_room"
	TypeChatMessage        = "chat_message"
	TypeTypingStart        = "typing_start"
	TypeTypingStop         = "typing_stop"
	TypeHeartbeat          = "heartbeat"
	TypeFocusSessionUpdate = "focus_session_update"
	TypeGameChallenge      = "game_challenge"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown message type")
)

// Inbound is implemented only by the client message types below.
type Inbound interface {
	inboundType() string
}

type Auth struct {
	Token string `json:"token"`
}

type JoinRoom struct {
	RoomID string `json:"room_id"`
}

type LeaveRoom struct {
	RoomID string `json:"room_id"`
}

type ChatMessageRequest struct {
	RoomID  string  `json:"room_id"`
	Content string  `json:"content"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

type TypingStart struct {
	RoomID string `json:"room_id"`
}

type TypingStop struct {
	RoomID string `json:"room_id"`
}

type Heartbeat struct{}

type FocusSessionUpdate struct {
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
	ElapsedTime int64  `json:"elapsed_time"`
}

type GameChallenge struct {
	TargetUserID  string          `json:"target_user_id"`
	GameID        string          `json:"game_id"`
	ChallengeData json.RawMessage `json:"challenge_data,omitempty"`
}

func (Auth) inboundType() string               { return TypeAuth }
func (JoinRoom) inboundType() string           { return TypeJoinRoom }
func (LeaveRoom) inboundType() string          { return TypeLeaveRoom }
func (ChatMessageRequest) inboundType() string { return TypeChatMessage }
func (TypingStart) inboundType() string        { return TypeTypingStart }
func (TypingStop) inboundType() string         { return TypeTypingStop }
func (Heartbeat) inboundType() string          { return TypeHeartbeat }
func (FocusSessionUpdate) inboundType() string { return TypeFocusSessionUpdate }
func (GameChallenge) inboundType() string      { return TypeGameChallenge }

// InboundType returns the wire tag of msg.
func InboundType(msg Inbound) string { return msg.inboundType() }

// DecodeInbound parses one text frame. Payload fields sit beside "type" at
// the top level of the object.
func DecodeInbound(frame []byte) (Inbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch head.Type {
	case TypeAuth:
		return decodeAs[Auth](frame)
	case TypeJoinRoom:
		return decodeAs[JoinRoom](frame)
	case TypeLeaveRoom:
		return decodeAs[LeaveRoom](frame)
	case TypeChatMessage:
		return decodeAs[ChatMessageRequest](frame)
	case TypeTypingStart:
		return decodeAs[TypingStart](frame)
	case TypeTypingStop:
		return decodeAs[TypingStop](frame)
	case TypeHeartbeat:
		return Heartbeat{}, nil
	case TypeFocusSessionUpdate:
		return decodeAs[FocusSessionUpdate](frame)
	case TypeGameChallenge:
		return decodeAs[GameChallenge](frame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

func decodeAs[T Inbound](frame []byte) (Inbound, error) {
	var msg T
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return msg, nil
}
