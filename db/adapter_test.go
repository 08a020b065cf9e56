package db_test

import (
	"testing"

	"github.com/kasuganosora/creaturebattle/server/config"
	dbadapter "github.com/kasuganosora/creaturebattle/server/db"
	"github.com/kasuganosora/creaturebattle/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestOpen_UnknownMode(t *testing.T) {
	_, err := dbadapter.Open(config.DatabaseConfig{Mode: "embedded_xml"})
	assert.Error(t, err)
}

func TestOpen_MemoryDatabasesAreIsolated(t *testing.T) {
	a, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeSQLiteMemory})
	require.NoError(t, err)
	b, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeSQLiteMemory})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(a))
	require.NoError(t, model.AutoMigrate(b))

	require.NoError(t, a.Create(&model.Profile{Participant: "only-in-a"}).Error)
	var n int64
	require.NoError(t, b.Model(&model.Profile{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := t.TempDir() + "/battle.db"
	db, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeSQLite, SQLitePath: path})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
}

func TestOpen_EmptySQLitePath(t *testing.T) {
	_, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeSQLite})
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, dbadapter.LogLevel(""))
	assert.Equal(t, logger.Silent, dbadapter.LogLevel("verbose"))
	assert.Equal(t, logger.Error, dbadapter.LogLevel("error"))
	assert.Equal(t, logger.Warn, dbadapter.LogLevel(" WARN "))
	assert.Equal(t, logger.Info, dbadapter.LogLevel("info"))
}

func TestClose(t *testing.T) {
	db, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeSQLiteMemory})
	require.NoError(t, err)
	require.NoError(t, dbadapter.Close(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
