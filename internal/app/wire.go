package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/nftmarket/internal/blob/s3"
	"github.com/alanyoungcy/nftmarket/internal/cache/redis"
	"github.com/alanyoungcy/nftmarket/internal/config"
	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
	"github.com/alanyoungcy/nftmarket/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application modes need.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store  domain.AccountStore
	Engine *market.Engine

	// Optional Redis-backed components; nil when Redis is disabled.
	Locks domain.LockManager
	Bus   domain.EventBus
	Cache domain.ListingCache

	// Archiver is set only in archive mode.
	Archiver *s3blob.ReceiptArchiver
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	return mode == "archive"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (all modes; it is the system of record) ---
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

	deps.Store = postgres.NewStore(pgClient.Pool())

	// --- Redis (optional; without it the store's own locking is the only
	// concurrency guard and no events are published) ---
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

		deps.Locks = redis.NewLockManager(redisClient)
		deps.Bus = redis.NewEventBus(redisClient)
		deps.Cache = redis.NewListingCache(redisClient)
	}

	deps.Engine = market.New(deps.Store, logger, market.Options{
		Locks: deps.Locks,
		Bus:   deps.Bus,
		Cache: deps.Cache,
	})

	// --- S3 blob storage (archive mode only) ---
	if needsS3(cfg.Mode) {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewReceiptArchiver(
			s3blob.NewWriter(s3Client),
			receiptSource{store: deps.Store},
			logger,
		)
	}

	return deps, cleanup, nil
}

// receiptSource adapts the account store to the archiver's read-only view.
type receiptSource struct {
	store domain.AccountStore
}

func (s receiptSource) ListBefore(ctx context.Context, before time.Time) ([]domain.Receipt, error) {
	var out []domain.Receipt
	err := s.store.View(ctx, func(tx domain.Tx) error {
		var err error
		out, err = tx.Receipts().ListBefore(ctx, before)
		return err
	})
	return out, err
}
