package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/basisbot/internal/blob/s3"
	"github.com/alanyoungcy/basisbot/internal/cache/redis"
	"github.com/alanyoungcy/basisbot/internal/config"
	"github.com/alanyoungcy/basisbot/internal/crypto"
	"github.com/alanyoungcy/basisbot/internal/domain"
	"github.com/alanyoungcy/basisbot/internal/notify"
	"github.com/alanyoungcy/basisbot/internal/platform/binance"
	"github.com/alanyoungcy/basisbot/internal/ratelimit"
	"github.com/alanyoungcy/basisbot/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Venue access. The cache rebuilds the client only when the credential
	// context changes; modes always fetch through it.
	Clients *binance.ClientCache
	Creds   binance.Credentials
	Pacer   *ratelimit.Pacer

	// Persistence (nil when the corresponding backend is disabled).
	ExecutionStore domain.ExecutionStore
	CycleStore     domain.CycleStore
	StatusCache    domain.StatusCache

	// Archival (nil unless S3 and Postgres are both enabled).
	Archiver domain.Archiver

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Rate limiting: the in-process pacer is always on. ---
	deps.Pacer = ratelimit.NewPacer(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.SafetyMargin, logger)

	// --- Redis: status mirror plus the optional shared request ceiling. ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.StatusCache = redis.NewStatusCache(redisClient, cfg.Redis.Instance)
		if cfg.RateLimit.CeilingEnabled {
			deps.Pacer.SetCeiling(
				redis.NewCeilingLimiter(redisClient),
				cfg.RateLimit.CeilingKey,
				cfg.RateLimit.CeilingLimit,
				cfg.RateLimit.CeilingWindow.Duration,
			)
		}
	}

	// --- Venue credentials. The secret may live in an encrypted key file. ---
	apiSecret := cfg.Venue.APISecret
	if cfg.Venue.APIKey != "" {
		secret, err := crypto.LoadSecret(crypto.SecretConfig{
			RawSecret:           cfg.Venue.APISecret,
			EncryptedSecretPath: cfg.Venue.EncryptedSecretPath,
			Password:            cfg.Venue.SecretPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue secret: %w", err)
		}
		apiSecret = secret
	}
	deps.Creds = binance.Credentials{
		APIKey:       cfg.Venue.APIKey,
		APISecret:    apiSecret,
		SpotBaseURL:  cfg.Venue.SpotBaseURL,
		FutBaseURL:   cfg.Venue.FuturesBaseURL,
		RecvWindowMs: cfg.Venue.RecvWindowMs,
	}
	deps.Clients = binance.NewClientCache(deps.Pacer)

	// --- PostgreSQL. ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ExecutionStore = postgres.NewExecutionStore(pool)
		deps.CycleStore = postgres.NewCycleStore(pool)
	}

	// --- S3 blob storage for archival. ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		if deps.ExecutionStore != nil {
			deps.Archiver = s3blob.NewExecutionArchiver(
				s3blob.NewWriter(s3Client),
				s3blob.NewReader(s3Client),
				deps.ExecutionStore,
				logger,
			)
		}
	}

	// --- Notifications. ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
