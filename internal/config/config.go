// Package config defines the top-level configuration for the basis bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/basisbot/internal/notify"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BASISBOT_* environment variables.
type Config struct {
	Venue      VenueConfig      `toml:"venue"`
	Trading    TradingConfig    `toml:"trading"`
	Triangular TriangularConfig `toml:"triangular"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// VenueConfig holds exchange endpoints and API credentials. The secret may be
// given raw or as an encrypted key file plus password.
type VenueConfig struct {
	SpotBaseURL         string `toml:"spot_base_url"`
	FuturesBaseURL      string `toml:"futures_base_url"`
	StreamBaseURL       string `toml:"stream_base_url"`
	APIKey              string `toml:"api_key"`
	APISecret           string `toml:"api_secret"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
	RecvWindowMs        int64  `toml:"recv_window_ms"`
}

// TradingConfig holds the primary pair, decision thresholds, and execution
// limits.
type TradingConfig struct {
	Symbol          string   `toml:"symbol"`
	BaseAsset       string   `toml:"base_asset"`
	SettlementAsset string   `toml:"settlement_asset"`
	PollInterval    duration `toml:"poll_interval"`
	AutoExecute     bool     `toml:"auto_execute"`

	SpotTakerFeeBps       float64 `toml:"spot_taker_fee_bps"`
	DerivativeTakerFeeBps float64 `toml:"derivative_taker_fee_bps"`
	SlippageBpsPerLeg     float64 `toml:"slippage_bps_per_leg"`

	ConsiderFunding     bool    `toml:"consider_funding"`
	FundingHorizonHours float64 `toml:"funding_horizon_hours"`

	MinSpreadBpsLongCarry float64 `toml:"min_spread_bps_long_carry"`
	MinSpreadBpsReverse   float64 `toml:"min_spread_bps_reverse"`

	AllowReverse      bool    `toml:"allow_reverse"`
	SpotMarginEnabled bool    `toml:"spot_margin_enabled"`
	MaxBorrowAprPct   float64 `toml:"max_borrow_apr_pct"`

	// MaxNotional caps settlement-asset value committed per trade.
	MaxNotional float64 `toml:"max_notional"`

	// SweepSymbols are extra pairs scouted after the primary each cycle.
	SweepSymbols []string `toml:"sweep_symbols"`
}

// TriangularConfig holds the three-leg route scanner and execution limits.
type TriangularConfig struct {
	Enabled         bool    `toml:"enabled"`
	SettlementAsset string  `toml:"settlement_asset"`
	MinQuoteVolume  float64 `toml:"min_quote_volume"`
	MinProfitBps    float64 `toml:"min_profit_bps"`
	TakerFeeBps     float64 `toml:"taker_fee_bps"`
	Budget          float64 `toml:"budget"`
	SafetyFraction  float64 `toml:"safety_fraction"`
}

// RateLimitConfig holds the request pacer parameters and the optional shared
// Redis ceiling.
type RateLimitConfig struct {
	RequestsPerMinute int      `toml:"requests_per_minute"`
	SafetyMargin      float64  `toml:"safety_margin"`
	CeilingEnabled    bool     `toml:"ceiling_enabled"`
	CeilingKey        string   `toml:"ceiling_key"`
	CeilingLimit      int      `toml:"ceiling_limit"`
	CeilingWindow     duration `toml:"ceiling_window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// Instance distinguishes multiple bots sharing one Redis.
	Instance string `toml:"instance"`
}

// S3Config holds S3-compatible object storage parameters for archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds background maintenance job parameters.
type PipelineConfig struct {
	ArchiveEnabled       bool   `toml:"archive_enabled"`
	ArchiveRetentionDays int    `toml:"archive_retention_days"`
	ArchiveCron          string `toml:"archive_cron"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
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

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venue: VenueConfig{
			SpotBaseURL:    "https://api.binance.com",
			FuturesBaseURL: "https://fapi.binance.com",
			StreamBaseURL:  "wss://stream.binance.com:9443",
			RecvWindowMs:   5000,
		},
		Trading: TradingConfig{
			Symbol:                "BTCUSDT",
			BaseAsset:             "BTC",
			SettlementAsset:       "USDT",
			PollInterval:          duration{30 * time.Second},
			AutoExecute:           false,
			SpotTakerFeeBps:       10,
			DerivativeTakerFeeBps: 5,
			SlippageBpsPerLeg:     5,
			ConsiderFunding:       true,
			FundingHorizonHours:   8,
			MinSpreadBpsLongCarry: 20,
			MinSpreadBpsReverse:   40,
			AllowReverse:          false,
			SpotMarginEnabled:     false,
			MaxBorrowAprPct:       15,
			MaxNotional:           1000,
		},
		Triangular: TriangularConfig{
			Enabled:         false,
			SettlementAsset: "USDT",
			MinQuoteVolume:  1_000_000,
			MinProfitBps:    10,
			TakerFeeBps:     10,
			Budget:          500,
			SafetyFraction:  0.95,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 1200,
			SafetyMargin:      0.8,
			CeilingEnabled:    false,
			CeilingKey:        "binance",
			CeilingLimit:      1100,
			CeilingWindow:     duration{time.Minute},
		},
		Postgres: PostgresConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "basisbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			Instance:   "default",
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "basisbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			ArchiveEnabled:       false,
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 1 * *",
		},
		Notify: NotifyConfig{
			Events: []string{notify.EventTradeExecuted, notify.EventTradeFailed, notify.EventRollbackFailed},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"dry_run": true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, dry_run, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venue credentials are mandatory for trading; monitor mode reads only
	// public endpoints.
	if c.Venue.SpotBaseURL == "" {
		errs = append(errs, "venue: spot_base_url must not be empty")
	}
	if c.Venue.FuturesBaseURL == "" {
		errs = append(errs, "venue: futures_base_url must not be empty")
	}
	if strings.ToLower(c.Mode) == "trade" {
		if c.Venue.APIKey == "" {
			errs = append(errs, "venue: api_key is required for mode trade")
		}
		if c.Venue.APISecret == "" && c.Venue.EncryptedSecretPath == "" {
			errs = append(errs, "venue: either api_secret or encrypted_secret_path must be set for mode trade")
		}
		if c.Venue.EncryptedSecretPath != "" && c.Venue.SecretPassword == "" {
			errs = append(errs, "venue: secret_password is required when encrypted_secret_path is set")
		}
	}

	// Trading
	if c.Trading.Symbol == "" {
		errs = append(errs, "trading: symbol must not be empty")
	}
	if c.Trading.SettlementAsset == "" {
		errs = append(errs, "trading: settlement_asset must not be empty")
	}
	if c.Trading.PollInterval.Duration <= 0 {
		errs = append(errs, "trading: poll_interval must be > 0")
	}
	if c.Trading.SpotTakerFeeBps < 0 || c.Trading.DerivativeTakerFeeBps < 0 {
		errs = append(errs, "trading: taker fees must be >= 0")
	}
	if c.Trading.SlippageBpsPerLeg < 0 {
		errs = append(errs, "trading: slippage_bps_per_leg must be >= 0")
	}
	if c.Trading.ConsiderFunding && c.Trading.FundingHorizonHours <= 0 {
		errs = append(errs, "trading: funding_horizon_hours must be > 0 when consider_funding is set")
	}
	if c.Trading.AllowReverse && !c.Trading.SpotMarginEnabled {
		errs = append(errs, "trading: allow_reverse requires spot_margin_enabled")
	}
	if c.Trading.MaxNotional <= 0 {
		errs = append(errs, "trading: max_notional must be > 0")
	}

	// Triangular
	if c.Triangular.Enabled {
		if c.Triangular.SettlementAsset == "" {
			errs = append(errs, "triangular: settlement_asset must not be empty when enabled")
		}
		if c.Triangular.Budget <= 0 {
			errs = append(errs, "triangular: budget must be > 0 when enabled")
		}
		if c.Triangular.SafetyFraction <= 0 || c.Triangular.SafetyFraction > 1 {
			errs = append(errs, "triangular: safety_fraction must be in (0, 1]")
		}
	}

	// Rate limit
	if c.RateLimit.RequestsPerMinute < 1 {
		errs = append(errs, "rate_limit: requests_per_minute must be >= 1")
	}
	if c.RateLimit.SafetyMargin <= 0 || c.RateLimit.SafetyMargin > 1 {
		errs = append(errs, "rate_limit: safety_margin must be in (0, 1]")
	}
	if c.RateLimit.CeilingEnabled {
		if !c.Redis.Enabled {
			errs = append(errs, "rate_limit: ceiling_enabled requires redis.enabled")
		}
		if c.RateLimit.CeilingLimit < 1 {
			errs = append(errs, "rate_limit: ceiling_limit must be >= 1 when enabled")
		}
		if c.RateLimit.CeilingWindow.Duration <= 0 {
			errs = append(errs, "rate_limit: ceiling_window must be > 0 when enabled")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
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

	// Pipeline
	if c.Pipeline.ArchiveEnabled {
		if !c.S3.Enabled {
			errs = append(errs, "pipeline: archive_enabled requires s3.enabled")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "pipeline: archive_enabled requires postgres.enabled")
		}
		if c.Pipeline.ArchiveRetentionDays < 1 {
			errs = append(errs, "pipeline: archive_retention_days must be >= 1")
		}
		if c.Pipeline.ArchiveCron == "" {
			errs = append(errs, "pipeline: archive_cron must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
