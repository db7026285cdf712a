package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Game      GameConfig
	Redis     RedisConfig
	Log       LogConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// set from the command line, not the config file
	ForceMigrate bool   `mapstructure:"-"`
	File         string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver      string
	Path        string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	Charset     string
	ParseTime   bool
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type AdminConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// GameConfig holds the rules of a play session.
type GameConfig struct {
	RoundLimitSeconds   int    `mapstructure:"round_limit_seconds"`
	FinalAnswer         string `mapstructure:"final_answer"`
	MaxResultRows       int    `mapstructure:"max_result_rows"`
	QueryTimeoutSeconds int    `mapstructure:"query_timeout_seconds"`
}

type RedisConfig struct {
	Enabled          bool
	Host             string
	Port             int
	Password         string
	DB               int
	SchemaTTLSeconds int `mapstructure:"schema_ttl_seconds"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "database.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", false)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("jwt.secret", "super_secret_key_change_this_for_prod")
	v.SetDefault("jwt.expire_hours", 1)

	v.SetDefault("admin.user", "QCA")
	v.SetDefault("admin.password", "8888")

	v.SetDefault("game.round_limit_seconds", 3600)
	v.SetDefault("game.final_answer", "Miranda Priestly")
	v.SetDefault("game.max_result_rows", 50)
	v.SetDefault("game.query_timeout_seconds", 5)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.schema_ttl_seconds", 300)

	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig reads <path>/config.yaml. A missing file is not an error; defaults
// and environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	return load(viper.New(), path)
}

// LoadWith is LoadConfig on a caller-owned viper instance, so command line flags
// bound to v take part in resolution.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	return load(v, path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUERY_CLASH")
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Secrets
	v.BindEnv("jwt.secret", "SECRET_KEY")
	v.BindEnv("admin.user", "ADMIN_USER")
	v.BindEnv("admin.password", "ADMIN_PASS")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	v.BindEnv("log.level", "LOG_LEVEL")

	var file string
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else {
		file = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.File = file

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}
	if cfg.Game.MaxResultRows <= 0 {
		return nil, fmt.Errorf("game.max_result_rows must be positive, got %d", cfg.Game.MaxResultRows)
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path != "" {
		cfg.Database.Path = filepath.Clean(cfg.Database.Path)
	}

	return &cfg, nil
}

// RoundLimit is the per-participant time budget.
func (c *Config) RoundLimit() time.Duration {
	return time.Duration(c.Game.RoundLimitSeconds) * time.Second
}

// QueryTimeout bounds a single sandboxed statement.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Game.QueryTimeoutSeconds) * time.Second
}
