package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TradeModeRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required for mode trade")
	assert.Contains(t, err.Error(), "api_secret or encrypted_secret_path")

	cfg.Venue.APIKey = "key"
	cfg.Venue.APISecret = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EncryptedSecretNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Venue.APIKey = "key"
	cfg.Venue.EncryptedSecretPath = "/etc/basisbot/secret.enc"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_password is required")
}

func TestValidate_ReverseRequiresMargin(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.AllowReverse = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allow_reverse requires spot_margin_enabled")

	cfg.Trading.SpotMarginEnabled = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CeilingRequiresRedis(t *testing.T) {
	cfg := Defaults()
	cfg.RateLimit.CeilingEnabled = true
	cfg.Redis.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ceiling_enabled requires redis.enabled")
}

func TestValidate_ArchiveRequiresStores(t *testing.T) {
	cfg := Defaults()
	cfg.Pipeline.ArchiveEnabled = true
	cfg.S3.Enabled = false
	cfg.Postgres.Enabled = false

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive_enabled requires s3.enabled")
	assert.Contains(t, err.Error(), "archive_enabled requires postgres.enabled")
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "yolo"`)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.Symbol = ""
	cfg.Trading.MaxNotional = 0
	cfg.RateLimit.SafetyMargin = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol must not be empty")
	assert.Contains(t, err.Error(), "max_notional must be > 0")
	assert.Contains(t, err.Error(), "safety_margin must be in (0, 1]")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BASISBOT_VENUE_API_KEY", "env-key")
	t.Setenv("BASISBOT_TRADING_POLL_INTERVAL", "45s")
	t.Setenv("BASISBOT_TRADING_AUTO_EXECUTE", "true")
	t.Setenv("BASISBOT_TRADING_SWEEP_SYMBOLS", "ETHUSDT, SOLUSDT")
	t.Setenv("BASISBOT_POSTGRES_PORT", "5433")
	t.Setenv("BASISBOT_MODE", "dry_run")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "env-key", cfg.Venue.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Trading.PollInterval.Duration)
	assert.True(t, cfg.Trading.AutoExecute)
	assert.Equal(t, []string{"ETHUSDT", "SOLUSDT"}, cfg.Trading.SweepSymbols)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.Equal(t, "dry_run", cfg.Mode)
}

func TestEnvOverrides_MalformedValuesIgnored(t *testing.T) {
	t.Setenv("BASISBOT_POSTGRES_PORT", "not-a-number")
	t.Setenv("BASISBOT_TRADING_POLL_INTERVAL", "soon")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 30*time.Second, cfg.Trading.PollInterval.Duration)
}

func TestDurationTOMLRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("5m")))
	assert.Equal(t, 5*time.Minute, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("later")))
}

func TestRedactedConfig_HidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Venue.APISecret = "super-secret"
	cfg.Postgres.Password = "pg-pass"
	cfg.Redis.Password = "redis-pass"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Venue.APISecret)
	assert.NotEqual(t, "pg-pass", red.Postgres.Password)
	assert.NotEqual(t, "redis-pass", red.Redis.Password)
	assert.NotEqual(t, "s3-secret", red.S3.SecretKey)
	assert.NotEqual(t, "tg-token", red.Notify.TelegramToken)
	// Non-secret fields survive untouched.
	assert.Equal(t, cfg.Trading.Symbol, red.Trading.Symbol)
}
