// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/nightwatch/models"
)

// GormStore 使用GORM的存储实现
type GormStore struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormStore(db)
}

// NewGormStore wraps an open gorm connection and migrates the audit tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormPlayer{},
		&models.GormGameSession{},
		&models.GormDoorEvent{},
	)
}

// UpsertPlayer 登录时写入或刷新玩家
func (s *GormStore) UpsertPlayer(ctx context.Context, p models.PlayerRecord) error {
	player := models.GormPlayer{
		ID:              p.ID,
		Username:        p.Username,
		Role:            p.Role,
		AnimatronicType: p.AnimatronicType,
		LastActive:      p.LastActive,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "role", "animatronic_type", "last_active"}),
	}).Create(&player).Error
}

func (s *GormStore) StartSession(ctx context.Context, start models.SessionStart) error {
	row := models.GormGameSession{
		StartTime:   start.StartTime,
		NightNumber: start.Night,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// EndSession 关闭最近一局未结束的游戏
func (s *GormStore) EndSession(ctx context.Context, end models.SessionEnd) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.GormGameSession
		err := tx.Where("end_time IS NULL").Order("start_time DESC").First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoOpenSession
		}
		if err != nil {
			return err
		}

		endTime := end.EndTime
		duration := int(end.Duration.Seconds())
		updates := map[string]interface{}{
			"end_time":         &endTime,
			"duration_seconds": &duration,
		}
		if end.Winner != "" {
			updates["winner"] = end.Winner
		}
		return tx.Model(&row).Updates(updates).Error
	})
}

// SaveDoorEvent 记录门操作，关联最近一局
func (s *GormStore) SaveDoorEvent(ctx context.Context, ev models.DoorEventRecord) error {
	db := s.db.WithContext(ctx)

	var latest models.GormGameSession
	var sessionID *uint
	err := db.Order("start_time DESC").First(&latest).Error
	switch {
	case err == nil:
		sessionID = &latest.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	return db.Create(&models.GormDoorEvent{
		SessionID: sessionID,
		PlayerID:  ev.PlayerID,
		DoorSide:  ev.Side,
		Action:    ev.Action,
		CreatedAt: ev.At,
	}).Error
}

// IncrementPlayerStats 原子更新对局统计
func (s *GormStore) IncrementPlayerStats(ctx context.Context, played, survived []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(played) > 0 {
			if err := tx.Model(&models.GormPlayer{}).Where("id IN ?", played).
				UpdateColumn("games_played", gorm.Expr("games_played + ?", 1)).Error; err != nil {
				return err
			}
		}
		if len(survived) > 0 {
			if err := tx.Model(&models.GormPlayer{}).Where("id IN ?", survived).
				UpdateColumn("survived_nights", gorm.Expr("survived_nights + ?", 1)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) GetPlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	var player models.GormPlayer
	if err := s.db.WithContext(ctx).Where("id = ?", playerID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlayerStats{}, ErrRecordNotFound
		}
		return models.PlayerStats{}, err
	}
	return models.PlayerStats{
		PlayerID:       player.ID,
		Username:       player.Username,
		Role:           player.Role,
		GamesPlayed:    player.GamesPlayed,
		SurvivedNights: player.SurvivedNights,
		LastActive:     player.LastActive,
	}, nil
}

// Close 关闭数据库连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
