package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FANTASYBET_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus environment. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FANTASYBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.Driver, "FANTASYBET_DATABASE_DRIVER")
	setStr(&cfg.Database.DSN, "FANTASYBET_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // platform convention
	setStr(&cfg.Database.Host, "FANTASYBET_DATABASE_HOST")
	setInt(&cfg.Database.Port, "FANTASYBET_DATABASE_PORT")
	setStr(&cfg.Database.Database, "FANTASYBET_DATABASE_NAME")
	setStr(&cfg.Database.User, "FANTASYBET_DATABASE_USER")
	setStr(&cfg.Database.Password, "FANTASYBET_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "FANTASYBET_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "FANTASYBET_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "FANTASYBET_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "FANTASYBET_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FANTASYBET_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FANTASYBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FANTASYBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FANTASYBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FANTASYBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FANTASYBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FANTASYBET_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.StandingsTTL, "FANTASYBET_REDIS_STANDINGS_TTL")
	setDuration(&cfg.Redis.LockTTL, "FANTASYBET_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FANTASYBET_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FANTASYBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FANTASYBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "FANTASYBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FANTASYBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FANTASYBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FANTASYBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FANTASYBET_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "FANTASYBET_S3_PREFIX")

	// ── Server ──
	setInt(&cfg.Server.Port, "FANTASYBET_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform convention
	setStringSlice(&cfg.Server.CORSOrigins, "FANTASYBET_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimitPerMinute, "FANTASYBET_SERVER_RATE_LIMIT_PER_MINUTE")
	setDuration(&cfg.Server.ReadTimeout, "FANTASYBET_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "FANTASYBET_SERVER_WRITE_TIMEOUT")

	// ── Auth ──
	setStr(&cfg.Auth.JWTSecret, "FANTASYBET_AUTH_JWT_SECRET")
	setStr(&cfg.Auth.JWTSecret, "JWT_SECRET") // compatibility alias
	setDuration(&cfg.Auth.TokenTTL, "FANTASYBET_AUTH_TOKEN_TTL")
	setInt(&cfg.Auth.BcryptCost, "FANTASYBET_AUTH_BCRYPT_COST")
	setStringSlice(&cfg.Auth.AdminUsernames, "FANTASYBET_AUTH_ADMIN_USERNAMES")

	// ── Betting ──
	setStr(&cfg.Betting.LockoutAt, "FANTASYBET_BETTING_LOCKOUT_AT")
	setFloat64(&cfg.Betting.StartingCoins, "FANTASYBET_BETTING_STARTING_COINS")
	setFloat64(&cfg.Betting.CashOutThreshold, "FANTASYBET_BETTING_CASH_OUT_THRESHOLD")
	setInt64(&cfg.Betting.FantasyBudget, "FANTASYBET_BETTING_FANTASY_BUDGET")
	setBool(&cfg.Betting.MarginMarketEnabled, "FANTASYBET_BETTING_MARGIN_MARKET_ENABLED")
	setBool(&cfg.Betting.OverInclusive, "FANTASYBET_BETTING_OVER_INCLUSIVE")

	// ── Scheduler ──
	setBool(&cfg.Scheduler.Enabled, "FANTASYBET_SCHEDULER_ENABLED")
	setStr(&cfg.Scheduler.CloseExpiredSpec, "FANTASYBET_SCHEDULER_CLOSE_EXPIRED_SPEC")
	setStr(&cfg.Scheduler.ArchiveSpec, "FANTASYBET_SCHEDULER_ARCHIVE_SPEC")
	setDuration(&cfg.Scheduler.ArchiveRetention, "FANTASYBET_SCHEDULER_ARCHIVE_RETENTION")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FANTASYBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FANTASYBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FANTASYBET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FANTASYBET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FANTASYBET_MODE")
	setStr(&cfg.LogLevel, "FANTASYBET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
