package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/metrics"
	pkgsecrets "github.com/Checker-Finance/adviser-fees/pkg/secrets"
)

// DSNResolver turns a Secrets Manager secret name into a Postgres DSN,
// caching the result locally to reduce API calls.
type DSNResolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[string]
}

func NewDSNResolver(logger *zap.Logger, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[string]) *DSNResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DSNResolver{logger: logger, provider: provider, cache: cache}
}

// Resolve returns the DSN stored under secretName. A secret with a "dsn"
// field is used verbatim; otherwise the DSN is built from the RDS fields.
func (r *DSNResolver) Resolve(ctx context.Context, secretName string) (string, error) {
	if dsn, ok := r.cache.Get(secretName); ok {
		metrics.IncCacheHit("hit")
		return dsn, nil
	}
	metrics.IncCacheHit("miss")

	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		metrics.IncError("secrets", "fetch_failed")
		return "", fmt.Errorf("resolve database secret %q: %w", secretName, err)
	}

	dsn := secretMap["dsn"]
	if dsn == "" {
		creds, err := pkgsecrets.ParseDBCredentials(secretMap)
		if err != nil {
			return "", fmt.Errorf("parse secret %q: %w", secretName, err)
		}
		dsn = creds.DSN()
	}

	r.cache.Put(secretName, dsn)
	r.logger.Info("aws.database_secret_resolved", zap.String("key", secretName))
	return dsn, nil
}

// Rotate drops the cached DSN so the next Resolve fetches it again.
func (r *DSNResolver) Rotate(secretName string) {
	r.cache.Bust(secretName)
}

// OpenWithRotation resolves secretName and passes the DSN to open. When open
// fails and isAuthErr matches, the cached DSN is rotated out and open is
// retried once with a freshly fetched secret.
func OpenWithRotation[T any](ctx context.Context, r *DSNResolver, secretName string, isAuthErr func(error) bool, open func(dsn string) (T, error)) (T, error) {
	var zero T
	dsn, err := r.Resolve(ctx, secretName)
	if err != nil {
		return zero, err
	}
	conn, err := open(dsn)
	if err == nil || !isAuthErr(err) {
		return conn, err
	}

	r.logger.Warn("aws.database_auth_failed_rotating",
		zap.String("key", secretName),
		zap.Error(err))
	metrics.IncError("secrets", "auth_rotated")
	r.Rotate(secretName)

	if dsn, err = r.Resolve(ctx, secretName); err != nil {
		return zero, err
	}
	return open(dsn)
}
