package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, "silent", cfg.Database.LogLevel)
	assert.Equal(t, 50, cfg.Game.DefaultLevel)
	assert.Equal(t, 3, cfg.Game.RandomTeamSize)
	assert.Equal(t, time.Duration(0), cfg.Game.IdleForfeit)
	assert.Equal(t, 5*time.Second, cfg.Game.IdleSweepInterval)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
	assert.Equal(t, 30*time.Second, cfg.Cache.LocalGCInterval)
	assert.Equal(t, 10*time.Minute, cfg.Game.RankingRefresh)
	assert.Equal(t, float64(20), cfg.Security.WSRateRPS)
	assert.Equal(t, 40, cfg.Security.WSRateBurst)
	assert.Empty(t, cfg.Server.AdminIPs)
}

func TestLoad_AdminIPs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	body := "server:\n  admin_ips:\n    - 127.0.0.1\n    - 10.0.0.0/8\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.Server.AdminIPs)
}

func TestLoad_ShippedFile(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Game.Weather)
	assert.False(t, cfg.Security.RequireToken)
	assert.Empty(t, cfg.Cache.RedisAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
