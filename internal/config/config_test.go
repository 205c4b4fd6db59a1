package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Auth.JWTSecret = "0123456789abcdef0123"
	return cfg
}

func TestDefaultsValidateWithSecret(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000.0, cfg.Betting.StartingCoins)
	assert.Equal(t, 10000.0, cfg.Betting.CashOutThreshold)
	assert.False(t, cfg.Betting.OverInclusive)
	assert.False(t, cfg.Betting.MarginMarketEnabled)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Database.Driver = "sqlite"
	cfg.Betting.LockoutAt = "12/12/2025"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, `unknown driver "sqlite"`)
	assert.Contains(t, msg, "jwt_secret")
	assert.Contains(t, msg, "lockout_at")
}

func TestValidateArchiveModeNeedsS3(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "archive"
	require.Error(t, cfg.Validate())

	cfg.S3.Enabled = true
	require.NoError(t, cfg.Validate())
}

func TestLockout(t *testing.T) {
	var b BettingConfig
	at, err := b.Lockout()
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	b.LockoutAt = "2025-12-12T20:59:00+01:00"
	at, err = b.Lockout()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 12, 19, 59, 0, 0, time.UTC), at.UTC())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "full"

[database]
driver = "memory"

[betting]
over_inclusive = true
lockout_at = "2025-12-12T20:59:00+01:00"

[redis]
standings_ttl = "1m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("FANTASYBET_AUTH_JWT_SECRET", "env-secret-long-enough")
	t.Setenv("FANTASYBET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FANTASYBET_BETTING_MARGIN_MARKET_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.Betting.OverInclusive)
	assert.True(t, cfg.Betting.MarginMarketEnabled)
	assert.Equal(t, time.Minute, cfg.Redis.StandingsTTL.Duration)
	assert.Equal(t, "env-secret-long-enough", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "pw"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	out := RedactedConfig(&cfg)
	assert.Equal(t, redacted, out.Auth.JWTSecret)
	assert.Equal(t, redacted, out.Database.Password)
	assert.Equal(t, redacted, out.Notify.DiscordWebhookURL)
	assert.Empty(t, out.S3.SecretKey)

	out.Server.CORSOrigins[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Server.CORSOrigins[0])
	assert.Equal(t, "0123456789abcdef0123", cfg.Auth.JWTSecret)
}
