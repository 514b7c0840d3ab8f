package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/engine"
	"github.com/Checker-Finance/adviser-fees/internal/export"
	"github.com/Checker-Finance/adviser-fees/internal/jobs"
	"github.com/Checker-Finance/adviser-fees/internal/pool"
	"github.com/Checker-Finance/adviser-fees/internal/publisher"
	internalsecrets "github.com/Checker-Finance/adviser-fees/internal/secrets"
	"github.com/Checker-Finance/adviser-fees/internal/store"
	"github.com/Checker-Finance/adviser-fees/pkg/config"
	"github.com/Checker-Finance/adviser-fees/pkg/secrets"
	"github.com/Checker-Finance/adviser-fees/pkg/utils"
)

// openStore connects Redis and, when configured, Postgres. DATABASE_URL is
// used as is; otherwise DATABASE_SECRET_NAME is resolved through AWS Secrets
// Manager and rotated once if Postgres rejects the credentials. Both empty
// means no Postgres.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.HybridStore, error) {
	if cfg.DatabaseURL != "" || cfg.DatabaseSecretName == "" {
		return newHybridStore(cfg, cfg.DatabaseURL, log)
	}

	resolver, err := newDSNResolver(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return internalsecrets.OpenWithRotation(ctx, resolver, cfg.DatabaseSecretName, store.IsAuthError,
		func(dsn string) (*store.HybridStore, error) {
			return newHybridStore(cfg, dsn, log)
		})
}

func newDSNResolver(ctx context.Context, cfg *config.Config, log *zap.Logger) (*internalsecrets.DSNResolver, error) {
	provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	cache := secrets.NewCache[string](cfg.SecretCacheTTL)
	if cfg.SecretCacheTTL > 0 {
		go cache.StartCleaner(ctx, cfg.SecretCacheTTL)
	}
	return internalsecrets.NewDSNResolver(log.Named("secrets"), provider, cache), nil
}

func newHybridStore(cfg *config.Config, dsn string, log *zap.Logger) (*store.HybridStore, error) {
	if dsn != "" {
		log.Info("store.postgres", zap.String("dsn", utils.MaskDSN(dsn)))
	}

	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, dsn, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, cfg.CacheTTL, log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}
	return st, nil
}

// connectNATS returns nil, nil when NATS_URL is empty.
func connectNATS(cfg *config.Config, log *zap.Logger) (*nats.Conn, *publisher.Publisher, error) {
	if cfg.NATSURL == "" {
		log.Info("nats.disabled")
		return nil, nil, nil
	}
	nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS %s: %w", utils.MaskURL(cfg.NATSURL), err)
	}
	pub, err := publisher.New(nc, publisher.SubjectRecordClassified, cfg.ServiceName)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to init publisher: %w", err)
	}
	return nc, pub, nil
}

func newProcessor(cfg *config.Config, log *zap.Logger) *engine.Processor {
	return engine.NewProcessor(log.Named("engine")).WithSeparator(cfg.Separator)
}

// newDirProcessor wires the file pipeline. st and pub may be nil.
func newDirProcessor(cfg *config.Config, proc *engine.Processor, st *store.HybridStore, pub *publisher.Publisher, log *zap.Logger) *jobs.DirProcessor {
	var ledger jobs.Ledger
	if st != nil {
		ledger = st
	}
	var files jobs.FilePublisher
	if pub != nil {
		files = pub
	}
	p := pool.New(proc, cfg.Workers, log.Named("pool"))
	w := export.NewWriter(cfg.OutputDir, export.WriteOptions{BOMPrefix: cfg.BOMPrefix}, log.Named("export"))
	return jobs.NewDirProcessor(cfg.InputDir, p, w, ledger, files, log.Named("jobs"))
}
