package sqlite

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fileParams lets the outcome writer and REST readers share a file database
// without SQLITE_BUSY errors.
const fileParams = "_journal_mode=WAL&_busy_timeout=5000"

// Open creates a GORM *DB backed by a SQLite file.
func Open(path string, cfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	return gorm.Open(sqlite.Open(withParams(path)), cfg)
}

func withParams(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?" + fileParams
}

// OpenMemory creates a private in-memory database. Each call gets its own
// named database, so parallel tests never see each other's rows.
func OpenMemory(cfg *gorm.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one connection keeps the memory database alive for the pool's lifetime
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
