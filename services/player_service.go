// services/player_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/models"
	"github.com/wfunc/nightwatch/persistence"
)

// PlayerService turns audit events into store writes and serves player statistics.
type PlayerService struct {
	db persistence.Store
}

func NewPlayerService(db persistence.Store) *PlayerService {
	return &PlayerService{db: db}
}

// Handle implements audit.Handler.
func (s *PlayerService) Handle(ctx context.Context, ev audit.Event) error {
	f := ev.Fields
	switch ev.Kind {
	case audit.KindPlayerLogin:
		return s.db.UpsertPlayer(ctx, models.PlayerRecord{
			ID:              f.PlayerID,
			Username:        f.PlayerName,
			Role:            f.Role,
			AnimatronicType: f.CharacterType,
			LastActive:      f.At,
		})
	case audit.KindDoorEvent:
		return s.db.SaveDoorEvent(ctx, models.DoorEventRecord{
			PlayerID: f.PlayerID,
			Side:     f.Side,
			Action:   f.Action,
			At:       f.At,
		})
	case audit.KindSessionStart:
		return s.db.StartSession(ctx, models.SessionStart{StartTime: f.At, Night: f.Night})
	case audit.KindSessionEnd:
		return s.recordSessionEnd(ctx, f)
	default:
		return fmt.Errorf("%w: %s", audit.ErrUnknownKind, ev.Kind)
	}
}

// recordSessionEnd 关闭对局并更新参与者统计
func (s *PlayerService) recordSessionEnd(ctx context.Context, f audit.Fields) error {
	err := s.db.EndSession(ctx, models.SessionEnd{
		EndTime:  f.At,
		Winner:   f.Winner,
		Duration: f.Duration,
	})
	if err != nil && !errors.Is(err, persistence.ErrNoOpenSession) {
		return err
	}

	played, survived := GameResultStats(f.Players, f.Winner)
	if statsErr := s.db.IncrementPlayerStats(ctx, played, survived); statsErr != nil {
		return statsErr
	}
	return err
}

// GameResultStats splits the players of a finished game into those who played
// and those credited with surviving the night. Admins are observers and never count.
func GameResultStats(players map[string]string, winner string) (played, survived []string) {
	for id, role := range players {
		if role == "admin" {
			continue
		}
		played = append(played, id)
		if winner == models.WinnerGuard && role == "guard" {
			survived = append(survived, id)
		}
	}
	return played, survived
}

// GetPlayerStats 获取玩家统计
func (s *PlayerService) GetPlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	return s.db.GetPlayerStats(ctx, playerID)
}
