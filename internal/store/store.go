package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

const ledgerKey = "feeproducts:ledger"

// SQLSTATE class 28 codes.
const (
	pgInvalidAuthorization = "28000"
	pgInvalidPassword      = "28P01"
)

// ErrNotFound is returned when a row is neither cached nor persisted.
var ErrNotFound = errors.New("store: not found")

// FileStamp identifies one version of an input file. A file whose stamp
// changes is processed again.
type FileStamp struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func (s FileStamp) Equal(o FileStamp) bool {
	return s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// LedgerEntry records a completed input file.
type LedgerEntry struct {
	File          string    `json:"file"`
	Stamp         FileStamp `json:"stamp"`
	OutputFile    string    `json:"output_file"`
	Rows          int       `json:"rows"`
	LowConfidence int       `json:"low_confidence"`
	ProcessedAt   time.Time `json:"processed_at"`
}

type HybridStore struct {
	redis    *redis.Client
	PG       *pgxpool.Pool
	rows     *RowWriter
	cacheTTL time.Duration
	logger   *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store. Postgres is
// optional: without pgURL rows are only cached.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, cacheTTL time.Duration, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pgPool.Ping(ctx); err != nil {
			pgPool.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("postgres ping failed: %w", err)
		}
	}

	return newHybrid(rdb, pgPool, cacheTTL, logger), nil
}

// IsAuthError reports whether err carries a Postgres authentication
// failure, e.g. after the database password was rotated.
func IsAuthError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgInvalidPassword || pgErr.Code == pgInvalidAuthorization
}

func newHybrid(rdb *redis.Client, pg *pgxpool.Pool, cacheTTL time.Duration, logger *zap.Logger) *HybridStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &HybridStore{redis: rdb, PG: pg, cacheTTL: cacheTTL, logger: logger}
	if pg != nil {
		s.rows = NewRowWriter(pg, logger)
	}
	return s
}

func rowKey(sourceFile string, rowIndex int) string {
	return fmt.Sprintf("row:%s:%d", sourceFile, rowIndex)
}

// IsProcessed reports whether file was already processed at this stamp.
func (s *HybridStore) IsProcessed(ctx context.Context, file string, stamp FileStamp) (bool, error) {
	data, err := s.redis.HGet(ctx, ledgerKey, file).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("ledger lookup %s: %w", file, err)
	}

	var entry LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("store.ledger.corrupt_entry", zap.String("file", file), zap.Error(err))
		return false, nil
	}
	return entry.Stamp.Equal(stamp), nil
}

// MarkProcessed records a completed file. Re-marking overwrites.
func (s *HybridStore) MarkProcessed(ctx context.Context, entry LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.redis.HSet(ctx, ledgerKey, entry.File, data).Err(); err != nil {
		s.logger.Error("store.ledger.mark_failed", zap.String("file", entry.File), zap.Error(err))
		return err
	}
	return nil
}

// ProcessedFiles lists the ledger ordered by file name.
func (s *HybridStore) ProcessedFiles(ctx context.Context) ([]LedgerEntry, error) {
	all, err := s.redis.HGetAll(ctx, ledgerKey).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LedgerEntry, 0, len(all))
	for file, raw := range all {
		var e LedgerEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("store.ledger.corrupt_entry", zap.String("file", file), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].File < entries[j].File })
	return entries, nil
}

// SaveRows caches each row in Redis and upserts it into Postgres when one
// is configured. Upserts key on (source_file, row_index), so saving the same
// row twice is harmless.
func (s *HybridStore) SaveRows(ctx context.Context, rows []model.OutputRow) error {
	pipe := s.redis.Pipeline()
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		pipe.Set(ctx, rowKey(row.Record.SourceFile, row.Record.RowIndex), data, s.cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("store.redis.cache_rows_failed", zap.Int("rows", len(rows)), zap.Error(err))
		return err
	}

	if s.rows == nil {
		return nil
	}
	return s.rows.UpsertRows(ctx, rows)
}

// GetRow reads a row from Redis, falling back to Postgres.
func (s *HybridStore) GetRow(ctx context.Context, sourceFile string, rowIndex int) (*model.OutputRow, error) {
	data, err := s.redis.Get(ctx, rowKey(sourceFile, rowIndex)).Bytes()
	switch {
	case err == nil:
		var row model.OutputRow
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, err
		}
		return &row, nil
	case !errors.Is(err, redis.Nil):
		return nil, err
	}

	if s.rows == nil {
		return nil, ErrNotFound
	}
	row, err := s.rows.GetRow(ctx, sourceFile, rowIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return row, err
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
