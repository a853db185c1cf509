package persistence

import (
	"fmt"

	"github.com/wfunc/nightwatch/config"
)

// Open connects the store selected by cfg.Driver. It returns a nil Store for driver "none".
func Open(cfg config.DatabaseConfig) (Store, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "none", "":
		return nil, nil
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
