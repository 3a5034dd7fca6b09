package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/MeganTobias/chainvault/internal/blob/s3"
	"github.com/MeganTobias/chainvault/internal/cache/redis"
	"github.com/MeganTobias/chainvault/internal/config"
	"github.com/MeganTobias/chainvault/internal/domain"
	"github.com/MeganTobias/chainvault/internal/notify"
	"github.com/MeganTobias/chainvault/internal/store/memory"
	"github.com/MeganTobias/chainvault/internal/store/postgres"
)

// Dependencies bundles the infrastructure-level dependencies the application
// modes build their services on. It is constructed by Wire and torn down by
// the returned cleanup function.
type Dependencies struct {
	// Stores
	AssetStore        domain.AssetStore
	BalanceStore      domain.BalanceStore
	RiskProfileStore  domain.RiskProfileStore
	AssetRiskStore    domain.AssetRiskStore
	PositionRiskStore domain.PositionRiskStore
	StopLossStore     domain.StopLossStore
	DomainStore       domain.DomainStore
	TransferStore     domain.TransferStore
	AuditStore        domain.AuditStore

	// Redis-backed infrastructure
	PriceSource domain.PriceSource
	EventStream domain.EventStream
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage
	Archiver *s3blob.Archiver

	// Notifications
	Notifier   *notify.Notifier
	HasSenders bool
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Persistence ---
	switch cfg.Storage {
	case "postgres":
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
		deps.AssetStore = postgres.NewAssetStore(pool)
		deps.BalanceStore = postgres.NewBalanceStore(pool)
		deps.RiskProfileStore = postgres.NewRiskProfileStore(pool)
		deps.AssetRiskStore = postgres.NewAssetRiskStore(pool)
		deps.PositionRiskStore = postgres.NewPositionRiskStore(pool)
		deps.StopLossStore = postgres.NewStopLossStore(pool)
		deps.DomainStore = postgres.NewDomainStore(pool)
		deps.TransferStore = postgres.NewTransferStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	case "memory":
		deps.AssetStore = memory.NewAssetStore()
		deps.BalanceStore = memory.NewBalanceStore()
		deps.RiskProfileStore = memory.NewRiskProfileStore()
		deps.AssetRiskStore = memory.NewAssetRiskStore()
		deps.PositionRiskStore = memory.NewPositionRiskStore()
		deps.StopLossStore = memory.NewStopLossStore()
		deps.DomainStore = memory.NewDomainStore()
		deps.TransferStore = memory.NewTransferStore()
		deps.AuditStore = memory.NewAuditStore()
	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported storage %q", cfg.Storage)
	}

	// --- Redis ---
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

	streamMaxLen := cfg.Risk.StreamMaxLen
	if streamMaxLen <= 0 {
		streamMaxLen = 10000
	}

	deps.PriceSource = redis.NewPriceSource(redisClient)
	deps.EventStream = redis.NewEventStream(redisClient, streamMaxLen)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (only when audit archival is enabled) ---
	if cfg.Archive.Enabled {
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
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.AuditStore, logger)
	}

	// --- Notifications ---
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
	deps.HasSenders = len(senders) > 0

	return deps, cleanup, nil
}
