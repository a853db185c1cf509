// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/nightwatch/models"
)

// Store 审计数据存储接口
type Store interface {
	UpsertPlayer(ctx context.Context, p models.PlayerRecord) error
	StartSession(ctx context.Context, start models.SessionStart) error
	EndSession(ctx context.Context, end models.SessionEnd) error
	SaveDoorEvent(ctx context.Context, ev models.DoorEventRecord) error
	IncrementPlayerStats(ctx context.Context, played, survived []string) error
	GetPlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNoOpenSession  = errors.New("no open game session")
)
