package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int      `mapstructure:"port"`
	Debug    bool     `mapstructure:"debug"`
	AdminKey string   `mapstructure:"admin_key"`
	AdminIPs []string `mapstructure:"admin_ips"` // empty allows any address
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	LogLevel     string        `mapstructure:"log_level"` // silent | error | warn | info
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPoolSize   int           `mapstructure:"redis_pool_size"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type GameConfig struct {
	DataPath          string        `mapstructure:"data_path"` // optional species/moves/teams JSON overrides
	DefaultLevel      int           `mapstructure:"default_level"`
	RandomTeamSize    int           `mapstructure:"random_team_size"`
	Weather           string        `mapstructure:"weather"` // none | rain | sun
	Seed              int64         `mapstructure:"seed"`    // 0 = seeded from the clock
	IdleForfeit       time.Duration `mapstructure:"idle_forfeit"`
	IdleSweepInterval time.Duration `mapstructure:"idle_sweep_interval"`
	OutcomeFlush      time.Duration `mapstructure:"outcome_flush"`
	RankingRefresh    time.Duration `mapstructure:"ranking_refresh"` // 0 disables the periodic rebuild
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RequireToken   bool          `mapstructure:"require_token"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	WSRateRPS      float64       `mapstructure:"ws_rate_rps"` // packets per second per participant
	WSRateBurst    int           `mapstructure:"ws_rate_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/battle.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("game.default_level", 50)
	v.SetDefault("game.random_team_size", 3)
	v.SetDefault("game.weather", "none")
	v.SetDefault("game.idle_forfeit", "0s")
	v.SetDefault("game.idle_sweep_interval", "5s")
	v.SetDefault("game.outcome_flush", "2s")
	v.SetDefault("game.ranking_refresh", "10m")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.ws_rate_rps", 20)
	v.SetDefault("security.ws_rate_burst", 40)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
