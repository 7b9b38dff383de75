// Package protocol is the realtime wire format shared by the arena server and
// the realtime client: a JSON envelope {"type": ..., "payload": {...}} per
// websocket text frame.
package protocol

import (
	"encoding/json"

	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// Type names a message
type Type string

// Client to server
const (
	TypeCreateRoom   Type = "create_room"
	TypeJoinRoom     Type = "join_room"
	TypeStartGame    Type = "start_game"
	TypePlayerAnswer Type = "player_answer"
	TypeUpdateHealth Type = "update_health"
	TypeLeaveRoom    Type = "leave_room"
	TypeSyncRequest  Type = "sync_request"
)

// Server to client
const (
	TypeRoomCreated          Type = "room_created"
	TypeRoomJoined           Type = "room_joined"
	TypeOpponentJoined       Type = "opponent_joined"
	TypeOpponentLeft         Type = "opponent_left"
	TypeGameStarted          Type = "game_started"
	TypeTurnChanged          Type = "turn_changed"
	TypeOpponentAttack       Type = "opponent_attack"
	TypeAttackConfirmed      Type = "attack_confirmed"
	TypeOpponentHealthUpdate Type = "opponent_health_update"
	TypeHealthConfirmed      Type = "health_confirmed"
	TypeStateSync            Type = "state_sync"
	TypeGameEnded            Type = "game_ended"
	TypeRoomClosed           Type = "room_closed"
	TypeError                Type = "error"
)

// TypeTransportError never crosses the wire. The client synthesizes it as the
// last event when the connection fails.
const TypeTransportError Type = "transport_error"

// Envelope is one frame on the wire
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is implemented by every payload
type Message interface {
	MessageType() Type
}

type CreateRoom struct {
	PlayerName string `json:"player_name"`
}

type JoinRoom struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type StartGame struct{}

// PlayerAnswer is the submit-action message. NewHealth is the sender's
// guess of the victim's health; the server recomputes it.
type PlayerAnswer struct {
	IsCorrect bool `json:"is_correct"`
	Damage    int  `json:"damage"`
	NewHealth int  `json:"new_health"`
}

type UpdateHealth struct {
	Health int `json:"health"`
}

type LeaveRoom struct{}

type SyncRequest struct{}

type RoomCreated struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type RoomJoined struct {
	RoomCode     string `json:"room_code"`
	PlayerName   string `json:"player_name"`
	OpponentName string `json:"opponent_name"`
}

type OpponentJoined struct {
	OpponentName string `json:"opponent_name"`
}

type OpponentLeft struct {
	Message string `json:"message"`
}

type GameStarted struct {
	YourTurn     bool   `json:"your_turn"`
	PlayerName   string `json:"player_name"`
	OpponentName string `json:"opponent_name"`
}

type TurnChanged struct {
	YourTurn bool `json:"your_turn"`
}

type OpponentAttack struct {
	Damage         int `json:"damage"`
	YourNewHealth  int `json:"your_new_health"`
	AttackerHealth int `json:"attacker_health"`
}

type AttackConfirmed struct {
	VictimNewHealth int `json:"victim_new_health"`
}

type OpponentHealthUpdate struct {
	OpponentHealth int `json:"opponent_health"`
}

// HealthConfirmed acknowledges an update_health to its sender
type HealthConfirmed struct {
	Health int `json:"health"`
}

// StateSync answers a sync_request with the authoritative room state
type StateSync struct {
	RoomCode       string `json:"room_code"`
	Started        bool   `json:"started"`
	YourTurn       bool   `json:"your_turn"`
	YourHealth     int    `json:"your_health"`
	OpponentHealth int    `json:"opponent_health"`
	OpponentName   string `json:"opponent_name,omitempty"`
}

type GameEnded struct {
	Winner  bool   `json:"winner"`
	Message string `json:"message"`
}

// RoomClosed tells a seated player the server dropped the room
type RoomClosed struct {
	Message string `json:"message"`
}

// Error is a request the server rejected
type Error struct {
	Message string `json:"message"`
}

type TransportError struct {
	Message string `json:"message"`
}

func (CreateRoom) MessageType() Type           { return TypeCreateRoom }
func (JoinRoom) MessageType() Type             { return TypeJoinRoom }
func (StartGame) MessageType() Type            { return TypeStartGame }
func (PlayerAnswer) MessageType() Type         { return TypePlayerAnswer }
func (UpdateHealth) MessageType() Type         { return TypeUpdateHealth }
func (LeaveRoom) MessageType() Type            { return TypeLeaveRoom }
func (SyncRequest) MessageType() Type          { return TypeSyncRequest }
func (RoomCreated) MessageType() Type          { return TypeRoomCreated }
func (RoomJoined) MessageType() Type           { return TypeRoomJoined }
func (OpponentJoined) MessageType() Type       { return TypeOpponentJoined }
func (OpponentLeft) MessageType() Type         { return TypeOpponentLeft }
func (GameStarted) MessageType() Type          { return TypeGameStarted }
func (TurnChanged) MessageType() Type          { return TypeTurnChanged }
func (OpponentAttack) MessageType() Type       { return TypeOpponentAttack }
func (AttackConfirmed) MessageType() Type      { return TypeAttackConfirmed }
func (OpponentHealthUpdate) MessageType() Type { return TypeOpponentHealthUpdate }
func (HealthConfirmed) MessageType() Type      { return TypeHealthConfirmed }
func (StateSync) MessageType() Type            { return TypeStateSync }
func (GameEnded) MessageType() Type            { return TypeGameEnded }
func (RoomClosed) MessageType() Type           { return TypeRoomClosed }
func (Error) MessageType() Type                { return TypeError }
func (TransportError) MessageType() Type       { return TypeTransportError }

var factories = map[Type]func() Message{
	TypeCreateRoom:           func() Message { return &CreateRoom{} },
	TypeJoinRoom:             func() Message { return &JoinRoom{} },
	TypeStartGame:            func() Message { return &StartGame{} },
	TypePlayerAnswer:         func() Message { return &PlayerAnswer{} },
	TypeUpdateHealth:         func() Message { return &UpdateHealth{} },
	TypeLeaveRoom:            func() Message { return &LeaveRoom{} },
	TypeSyncRequest:          func() Message { return &SyncRequest{} },
	TypeRoomCreated:          func() Message { return &RoomCreated{} },
	TypeRoomJoined:           func() Message { return &RoomJoined{} },
	TypeOpponentJoined:       func() Message { return &OpponentJoined{} },
	TypeOpponentLeft:         func() Message { return &OpponentLeft{} },
	TypeGameStarted:          func() Message { return &GameStarted{} },
	TypeTurnChanged:          func() Message { return &TurnChanged{} },
	TypeOpponentAttack:       func() Message { return &OpponentAttack{} },
	TypeAttackConfirmed:      func() Message { return &AttackConfirmed{} },
	TypeOpponentHealthUpdate: func() Message { return &OpponentHealthUpdate{} },
	TypeHealthConfirmed:      func() Message { return &HealthConfirmed{} },
	TypeStateSync:            func() Message { return &StateSync{} },
	TypeGameEnded:            func() Message { return &GameEnded{} },
	TypeRoomClosed:           func() Message { return &RoomClosed{} },
	TypeError:                func() Message { return &Error{} },
}

// Encode wraps a message in an envelope and marshals it
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s payload", msg.MessageType())
	}
	data, err := json.Marshal(Envelope{Type: msg.MessageType(), Payload: payload})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode envelope")
	}
	return data, nil
}

// Decode parses a frame into its typed message. The returned message is a
// pointer to one of the payload structs of this package.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "malformed envelope")
	}

	factory, ok := factories[env.Type]
	if !ok {
		return nil, errors.InvalidArgumentf("unknown message type %q", env.Type)
	}

	msg := factory()
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "malformed payload").
				WithMeta("type", string(env.Type))
		}
	}
	return msg, nil
}
