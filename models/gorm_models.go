// models/gorm_models.go
package models

import (
	"time"
)

// GormPlayer 玩家模型，ID 为最近一次连接的 connection id
type GormPlayer struct {
	ID              string    `gorm:"primaryKey;size:36"`
	Username        string    `gorm:"size:50;not null"`
	Role            string    `gorm:"size:16;not null"`
	AnimatronicType string    `gorm:"size:30"`
	LastActive      time.Time `gorm:"index"`
	GamesPlayed     int       `gorm:"default:0"`
	SurvivedNights  int       `gorm:"default:0"`
}

func (GormPlayer) TableName() string { return "players" }

// GormGameSession 一局游戏记录
type GormGameSession struct {
	ID              uint      `gorm:"primaryKey"`
	StartTime       time.Time `gorm:"not null;index"`
	EndTime         *time.Time
	NightNumber     int     `gorm:"not null"`
	Winner          *string `gorm:"size:16"`
	DurationSeconds *int
}

func (GormGameSession) TableName() string { return "game_sessions" }

// GormDoorEvent 门操作日志
type GormDoorEvent struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID *uint     `gorm:"index"`
	PlayerID  string    `gorm:"size:36;not null"`
	DoorSide  string    `gorm:"size:16;not null"`
	Action    string    `gorm:"size:8;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (GormDoorEvent) TableName() string { return "door_events" }
