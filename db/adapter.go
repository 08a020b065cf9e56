package db

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/creaturebattle/server/config"
	dbmysql "github.com/kasuganosora/creaturebattle/server/db/mysql"
	dbsqlite "github.com/kasuganosora/creaturebattle/server/db/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
)

// Open returns a *gorm.DB for the configured database mode. Profile rows are
// the only persistent state, so every mode shares one gorm configuration.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(LogLevel(cfg.LogLevel))}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Mode {
	case ModeSQLite:
		db, err = dbsqlite.Open(cfg.SQLitePath, gcfg)
	case ModeSQLiteMemory:
		db, err = dbsqlite.OpenMemory(gcfg)
	case ModeMySQL:
		db, err = dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		}, gcfg)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Mode, err)
	}
	return db, nil
}

// LogLevel maps database.log_level onto gorm's levels. Anything unrecognised
// is silent.
func LogLevel(s string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info", "debug":
		return logger.Info
	default:
		return logger.Silent
	}
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
