// models/models.go
package models

import (
	"time"
)

// PlayerRecord is written on every successful login.
type PlayerRecord struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	AnimatronicType string    `json:"animatronic_type,omitempty"`
	LastActive      time.Time `json:"last_active"`
}

// SessionStart opens a new game session row.
type SessionStart struct {
	StartTime time.Time `json:"start_time"`
	Night     int       `json:"night"`
}

// SessionEnd closes the most recent open game session.
type SessionEnd struct {
	EndTime  time.Time `json:"end_time"`
	Winner   string    `json:"winner,omitempty"` // guard/animatronics, empty when undecided
	Duration time.Duration
}

// DoorEventRecord 门操作记录，关联到最近一局
type DoorEventRecord struct {
	PlayerID string    `json:"player_id"`
	Side     string    `json:"side"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	PlayerID       string    `json:"player_id"`
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	GamesPlayed    int       `json:"games_played"`
	SurvivedNights int       `json:"survived_nights"`
	LastActive     time.Time `json:"last_active"`
}

const (
	WinnerGuard        = "guard"
	WinnerAnimatronics = "animatronics"
)

// ValidWinner reports whether w is an accepted game outcome. Empty means undecided.
func ValidWinner(w string) bool {
	return w == "" || w == WinnerGuard || w == WinnerAnimatronics
}
