// Package config defines the top-level configuration for the fantasybet
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FANTASYBET_* environment variables.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Betting   BettingConfig   `toml:"betting"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatabaseConfig selects the storage backend and holds PostgreSQL connection
// parameters.
type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory driver keeps everything in
	// process and is meant for local runs and demos.
	Driver        string `toml:"driver"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when it is
// disabled the service runs without the standings cache, the settlement lock,
// rate limiting and the websocket event feed.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	StandingsTTL duration `toml:"standings_ttl"`
	LockTTL      duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters used for archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	ReadTimeout        duration `toml:"read_timeout"`
	WriteTimeout       duration `toml:"write_timeout"`
}

// AuthConfig holds token signing and password hashing parameters.
type AuthConfig struct {
	JWTSecret  string   `toml:"jwt_secret"`
	TokenTTL   duration `toml:"token_ttl"`
	BcryptCost int      `toml:"bcrypt_cost"`

	// AdminUsernames are granted the admin flag when they register.
	AdminUsernames []string `toml:"admin_usernames"`
}

// BettingConfig holds the wagering rules that are policy rather than code.
type BettingConfig struct {
	// LockoutAt is an RFC 3339 instant after which no bet can be placed or
	// cancelled. Empty disables the global lockout.
	LockoutAt           string  `toml:"lockout_at"`
	StartingCoins       float64 `toml:"starting_coins"`
	CashOutThreshold    float64 `toml:"cash_out_threshold"`
	FantasyBudget       int64   `toml:"fantasy_budget"`
	MarginMarketEnabled bool    `toml:"margin_market_enabled"`
	// OverInclusive settles an "over" selection as won when the total equals
	// the line.
	OverInclusive bool `toml:"over_inclusive"`
}

// Lockout parses LockoutAt. The zero time means no lockout.
func (b BettingConfig) Lockout() (time.Time, error) {
	if strings.TrimSpace(b.LockoutAt) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, b.LockoutAt)
}

// SchedulerConfig holds the cron specs for background jobs.
type SchedulerConfig struct {
	Enabled          bool     `toml:"enabled"`
	CloseExpiredSpec string   `toml:"close_expired_spec"`
	ArchiveSpec      string   `toml:"archive_spec"`
	ArchiveRetention duration `toml:"archive_retention"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:        "postgres",
			Host:          "localhost",
			Port:          5432,
			Database:      "fantasybet",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:      true,
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			StandingsTTL: duration{5 * time.Minute},
			LockTTL:      duration{30 * time.Second},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fantasybet-archive",
			ForcePathStyle: true,
			Prefix:         "archive",
		},
		Server: ServerConfig{
			Port:               3001,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 120,
			ReadTimeout:        duration{15 * time.Second},
			WriteTimeout:       duration{15 * time.Second},
		},
		Auth: AuthConfig{
			TokenTTL:   duration{7 * 24 * time.Hour},
			BcryptCost: 10,
		},
		Betting: BettingConfig{
			StartingCoins:    1000,
			CashOutThreshold: 10000,
			FantasyBudget:    10_000_000,
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			CloseExpiredSpec: "@every 1m",
			ArchiveSpec:      "0 3 1 * *",
			ArchiveRetention: duration{90 * 24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"match_settled", "cash_out"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"full":    true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, full, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	switch c.Database.Driver {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("database: unknown driver %q (valid: postgres, memory)", c.Database.Driver))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}
	if c.Mode == "archive" && !c.S3.Enabled {
		errs = append(errs, "s3: must be enabled for mode archive")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}

	// Auth
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, "auth: jwt_secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, "auth: token_ttl must be > 0")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Sprintf("auth: bcrypt_cost must be 4-31, got %d", c.Auth.BcryptCost))
	}

	// Betting
	if _, err := c.Betting.Lockout(); err != nil {
		errs = append(errs, fmt.Sprintf("betting: lockout_at must be RFC 3339: %v", err))
	}
	if c.Betting.StartingCoins < 0 {
		errs = append(errs, "betting: starting_coins must be >= 0")
	}
	if c.Betting.CashOutThreshold <= 0 {
		errs = append(errs, "betting: cash_out_threshold must be > 0")
	}

	// Scheduler
	if c.Scheduler.Enabled {
		if c.Scheduler.CloseExpiredSpec == "" {
			errs = append(errs, "scheduler: close_expired_spec must not be empty")
		}
		if c.S3.Enabled && c.Scheduler.ArchiveSpec == "" {
			errs = append(errs, "scheduler: archive_spec must not be empty when s3 is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
