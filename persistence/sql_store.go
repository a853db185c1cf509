// persistence/sql_store.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL 驱动
	_ "modernc.org/sqlite" // SQLite 驱动（纯 Go）

	"github.com/wfunc/nightwatch/models"
)

// Dialect captures the few differences between the SQL backends.
type Dialect struct {
	Name   string
	driver string
	schema []string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	DialectPostgres = Dialect{
		Name:     "postgres",
		driver:   "postgres",
		numbered: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS players (
				id VARCHAR(36) PRIMARY KEY,
				username VARCHAR(50) NOT NULL,
				role VARCHAR(16) NOT NULL,
				animatronic_type VARCHAR(30) NULL,
				last_active TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				games_played INT NOT NULL DEFAULT 0,
				survived_nights INT NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS game_sessions (
				id SERIAL PRIMARY KEY,
				start_time TIMESTAMP NOT NULL,
				end_time TIMESTAMP NULL,
				night_number SMALLINT NOT NULL,
				winner VARCHAR(16) NULL,
				duration_seconds INT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS door_events (
				id SERIAL PRIMARY KEY,
				session_id INT NULL REFERENCES game_sessions(id),
				player_id VARCHAR(36) NOT NULL,
				door_side VARCHAR(16) NOT NULL,
				action VARCHAR(8) NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_game_sessions_start_time ON game_sessions(start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_door_events_session_id ON door_events(session_id)`,
		},
	}

	DialectSQLite = Dialect{
		Name:   "sqlite",
		driver: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS players (
				id TEXT PRIMARY KEY,
				username TEXT NOT NULL,
				role TEXT NOT NULL,
				animatronic_type TEXT NULL,
				last_active DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				games_played INTEGER NOT NULL DEFAULT 0,
				survived_nights INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS game_sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time DATETIME NOT NULL,
				end_time DATETIME NULL,
				night_number INTEGER NOT NULL,
				winner TEXT NULL,
				duration_seconds INTEGER NULL
			)`,
			`CREATE TABLE IF NOT EXISTS door_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id INTEGER NULL REFERENCES game_sessions(id),
				player_id TEXT NOT NULL,
				door_side TEXT NOT NULL,
				action TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_game_sessions_start_time ON game_sessions(start_time)`,
			`CREATE INDEX IF NOT EXISTS idx_door_events_session_id ON door_events(session_id)`,
		},
	}
)

// rebind rewrites ? placeholders for dialects that use numbered ones.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore 基于 database/sql 的实现，支持 PostgreSQL 与 SQLite
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*SQLStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open(DialectPostgres.driver, connStr)
	if err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, DialectPostgres)
}

// NewSQLite opens (or creates) a SQLite database file.
func NewSQLite(path string) (*SQLStore, error) {
	if !strings.Contains(path, "?") {
		path += "?_time_format=sqlite"
	}
	db, err := sql.Open(DialectSQLite.driver, path)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases and write locking simple
	db.SetMaxOpenConns(1)

	return newSQLStore(db, DialectSQLite)
}

func newSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 初始化表结构
	for _, stmt := range dialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %s schema: %w", dialect.Name, err)
		}
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

// UpsertPlayer 使用 UPSERT 操作
func (s *SQLStore) UpsertPlayer(ctx context.Context, p models.PlayerRecord) error {
	_, err := s.exec(ctx, `
        INSERT INTO players (id, username, role, animatronic_type, last_active)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id)
        DO UPDATE SET username = excluded.username, role = excluded.role,
            animatronic_type = excluded.animatronic_type, last_active = excluded.last_active
    `, p.ID, p.Username, p.Role, nullString(p.AnimatronicType), p.LastActive.UTC())
	return err
}

func (s *SQLStore) StartSession(ctx context.Context, start models.SessionStart) error {
	_, err := s.exec(ctx,
		`INSERT INTO game_sessions (start_time, night_number) VALUES (?, ?)`,
		start.StartTime.UTC(), start.Night)
	return err
}

func (s *SQLStore) EndSession(ctx context.Context, end models.SessionEnd) error {
	res, err := s.exec(ctx, `
        UPDATE game_sessions SET end_time = ?, winner = ?, duration_seconds = ?
        WHERE id = (SELECT id FROM game_sessions WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1)
    `, end.EndTime.UTC(), nullString(end.Winner), int(end.Duration.Seconds()))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoOpenSession
	}
	return nil
}

// SaveDoorEvent 记录门操作，关联最近一局
func (s *SQLStore) SaveDoorEvent(ctx context.Context, ev models.DoorEventRecord) error {
	_, err := s.exec(ctx, `
        INSERT INTO door_events (session_id, player_id, door_side, action, created_at)
        VALUES ((SELECT id FROM game_sessions ORDER BY start_time DESC LIMIT 1), ?, ?, ?, ?)
    `, ev.PlayerID, ev.Side, ev.Action, ev.At.UTC())
	return err
}

func (s *SQLStore) IncrementPlayerStats(ctx context.Context, played, survived []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	playedQuery := s.dialect.rebind(`UPDATE players SET games_played = games_played + 1 WHERE id = ?`)
	for _, id := range played {
		if _, err := tx.ExecContext(ctx, playedQuery, id); err != nil {
			return err
		}
	}
	survivedQuery := s.dialect.rebind(`UPDATE players SET survived_nights = survived_nights + 1 WHERE id = ?`)
	for _, id := range survived {
		if _, err := tx.ExecContext(ctx, survivedQuery, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetPlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	var stats models.PlayerStats
	query := s.dialect.rebind(`
        SELECT id, username, role, games_played, survived_nights, last_active
        FROM players WHERE id = ?`)
	err := s.db.QueryRowContext(ctx, query, playerID).Scan(
		&stats.PlayerID, &stats.Username, &stats.Role,
		&stats.GamesPlayed, &stats.SurvivedNights, &stats.LastActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PlayerStats{}, ErrRecordNotFound
	}
	return stats, err
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
