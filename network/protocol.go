package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound events.
const (
	EventAuthenticate      = "authenticate"
	EventStartGame         = "startGame"
	EventEndGame           = "endGame"
	EventDoorAction        = "doorAction"
	EventCharacterMove     = "characterMove"
	EventRequestPlayerList = "requestPlayerList"
	EventKickPlayer        = "kickPlayer"
	EventPing              = "ping"
)

// Outbound events.
const (
	EventAuthSuccess       = "auth_success"
	EventAuthError         = "auth_error"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventGameStarted       = "game_started"
	EventGameEnded         = "game_ended"
	EventDoorUpdate        = "door_update"
	EventCharacterUpdate   = "character_update"
	EventEnergyUpdate      = "energy_update"
	EventPlayerList        = "player_list"
	EventKicked            = "kicked"
	EventError             = "error"
	EventPong              = "pong"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Envelope 文本帧格式：{"event":"doorAction","data":{...}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound event.
func Encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode parses an inbound frame.
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}
	return &env, nil
}
