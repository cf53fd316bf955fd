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
// built-in defaults, applies BASISBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BASISBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Venue
	setStr(&cfg.Venue.SpotBaseURL, "BASISBOT_VENUE_SPOT_BASE_URL")
	setStr(&cfg.Venue.FuturesBaseURL, "BASISBOT_VENUE_FUTURES_BASE_URL")
	setStr(&cfg.Venue.StreamBaseURL, "BASISBOT_VENUE_STREAM_BASE_URL")
	setStr(&cfg.Venue.APIKey, "BASISBOT_VENUE_API_KEY")
	setStr(&cfg.Venue.APISecret, "BASISBOT_VENUE_API_SECRET")
	setStr(&cfg.Venue.EncryptedSecretPath, "BASISBOT_VENUE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Venue.SecretPassword, "BASISBOT_VENUE_SECRET_PASSWORD")
	setInt64(&cfg.Venue.RecvWindowMs, "BASISBOT_VENUE_RECV_WINDOW_MS")

	// Trading
	setStr(&cfg.Trading.Symbol, "BASISBOT_TRADING_SYMBOL")
	setStr(&cfg.Trading.BaseAsset, "BASISBOT_TRADING_BASE_ASSET")
	setStr(&cfg.Trading.SettlementAsset, "BASISBOT_TRADING_SETTLEMENT_ASSET")
	setDuration(&cfg.Trading.PollInterval, "BASISBOT_TRADING_POLL_INTERVAL")
	setBool(&cfg.Trading.AutoExecute, "BASISBOT_TRADING_AUTO_EXECUTE")
	setFloat64(&cfg.Trading.SpotTakerFeeBps, "BASISBOT_TRADING_SPOT_TAKER_FEE_BPS")
	setFloat64(&cfg.Trading.DerivativeTakerFeeBps, "BASISBOT_TRADING_DERIVATIVE_TAKER_FEE_BPS")
	setFloat64(&cfg.Trading.SlippageBpsPerLeg, "BASISBOT_TRADING_SLIPPAGE_BPS_PER_LEG")
	setBool(&cfg.Trading.ConsiderFunding, "BASISBOT_TRADING_CONSIDER_FUNDING")
	setFloat64(&cfg.Trading.FundingHorizonHours, "BASISBOT_TRADING_FUNDING_HORIZON_HOURS")
	setFloat64(&cfg.Trading.MinSpreadBpsLongCarry, "BASISBOT_TRADING_MIN_SPREAD_BPS_LONG_CARRY")
	setFloat64(&cfg.Trading.MinSpreadBpsReverse, "BASISBOT_TRADING_MIN_SPREAD_BPS_REVERSE")
	setBool(&cfg.Trading.AllowReverse, "BASISBOT_TRADING_ALLOW_REVERSE")
	setBool(&cfg.Trading.SpotMarginEnabled, "BASISBOT_TRADING_SPOT_MARGIN_ENABLED")
	setFloat64(&cfg.Trading.MaxBorrowAprPct, "BASISBOT_TRADING_MAX_BORROW_APR_PCT")
	setFloat64(&cfg.Trading.MaxNotional, "BASISBOT_TRADING_MAX_NOTIONAL")
	setStringSlice(&cfg.Trading.SweepSymbols, "BASISBOT_TRADING_SWEEP_SYMBOLS")

	// Triangular
	setBool(&cfg.Triangular.Enabled, "BASISBOT_TRIANGULAR_ENABLED")
	setStr(&cfg.Triangular.SettlementAsset, "BASISBOT_TRIANGULAR_SETTLEMENT_ASSET")
	setFloat64(&cfg.Triangular.MinQuoteVolume, "BASISBOT_TRIANGULAR_MIN_QUOTE_VOLUME")
	setFloat64(&cfg.Triangular.MinProfitBps, "BASISBOT_TRIANGULAR_MIN_PROFIT_BPS")
	setFloat64(&cfg.Triangular.TakerFeeBps, "BASISBOT_TRIANGULAR_TAKER_FEE_BPS")
	setFloat64(&cfg.Triangular.Budget, "BASISBOT_TRIANGULAR_BUDGET")
	setFloat64(&cfg.Triangular.SafetyFraction, "BASISBOT_TRIANGULAR_SAFETY_FRACTION")

	// Rate limit
	setInt(&cfg.RateLimit.RequestsPerMinute, "BASISBOT_RATE_LIMIT_REQUESTS_PER_MINUTE")
	setFloat64(&cfg.RateLimit.SafetyMargin, "BASISBOT_RATE_LIMIT_SAFETY_MARGIN")
	setBool(&cfg.RateLimit.CeilingEnabled, "BASISBOT_RATE_LIMIT_CEILING_ENABLED")
	setStr(&cfg.RateLimit.CeilingKey, "BASISBOT_RATE_LIMIT_CEILING_KEY")
	setInt(&cfg.RateLimit.CeilingLimit, "BASISBOT_RATE_LIMIT_CEILING_LIMIT")
	setDuration(&cfg.RateLimit.CeilingWindow, "BASISBOT_RATE_LIMIT_CEILING_WINDOW")

	// Postgres
	setBool(&cfg.Postgres.Enabled, "BASISBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "BASISBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BASISBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BASISBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BASISBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BASISBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BASISBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BASISBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BASISBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BASISBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BASISBOT_POSTGRES_RUN_MIGRATIONS")

	// Redis
	setBool(&cfg.Redis.Enabled, "BASISBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BASISBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BASISBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BASISBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BASISBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BASISBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BASISBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Instance, "BASISBOT_REDIS_INSTANCE")

	// S3
	setBool(&cfg.S3.Enabled, "BASISBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BASISBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BASISBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "BASISBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BASISBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BASISBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BASISBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BASISBOT_S3_FORCE_PATH_STYLE")

	// Pipeline
	setBool(&cfg.Pipeline.ArchiveEnabled, "BASISBOT_PIPELINE_ARCHIVE_ENABLED")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "BASISBOT_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Pipeline.ArchiveCron, "BASISBOT_PIPELINE_ARCHIVE_CRON")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "BASISBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BASISBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BASISBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BASISBOT_NOTIFY_EVENTS")

	// Top-level
	setStr(&cfg.Mode, "BASISBOT_MODE")
	setStr(&cfg.LogLevel, "BASISBOT_LOG_LEVEL")
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
