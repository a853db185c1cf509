package room

import (
	"time"

	"github.com/wfunc/nightwatch/session"
)

type authenticateRequest struct {
	Role            string `json:"role"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	AnimatronicType string `json:"animatronic_type"`
}

type endGameRequest struct {
	Winner string `json:"winner"`
}

type doorActionRequest struct {
	Side   string `json:"side"`
	Action string `json:"action"`
}

type characterMoveRequest struct {
	Type     string   `json:"type"`
	Position string   `json:"position"`
	Visible  bool     `json:"visible"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}

type kickRequest struct {
	ID string `json:"id"`
}

type AuthSuccess struct {
	Token           string `json:"token,omitempty"`
	PlayerID        string `json:"player_id"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	AnimatronicType string `json:"animatronic_type,omitempty"`
	IsAdmin         bool   `json:"is_admin"`
	Night           int    `json:"night"`
}

// ErrorReply is sent as error, or auth_error for a failed authenticate.
type ErrorReply struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ParticipantLeft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type GameStarted struct {
	Night     int       `json:"night"`
	Energy    int       `json:"energy"`
	StartedAt time.Time `json:"started_at"`
}

type GameEnded struct {
	Night           int    `json:"night"`
	NextNight       int    `json:"next_night"`
	DurationSeconds int    `json:"duration_seconds"`
	Winner          string `json:"winner,omitempty"`
}

type DoorUpdate struct {
	Side   string `json:"side"`
	State  bool   `json:"state"`
	Action string `json:"action"`
}

type CharacterUpdate struct {
	Type     string   `json:"type"`
	Position string   `json:"position"`
	Visible  bool     `json:"visible"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

type EnergyUpdate struct {
	Energy int `json:"energy"`
}

type PlayerList struct {
	Players    []session.Participant `json:"players"`
	GameActive bool                  `json:"game_active"`
}

type Kicked struct {
	Reason string `json:"reason"`
}

type Pong struct {
	Time int64 `json:"time"`
}

// Status is the read-only projection served by /api/status.
type Status struct {
	Status       string `json:"status"`
	Players      int    `json:"players"`
	CurrentNight int    `json:"current_night"`
	GameActive   bool   `json:"game_active"`
	Energy       int    `json:"energy"`
	Version      string `json:"version"`
}
