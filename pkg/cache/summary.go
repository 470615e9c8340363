package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"client-manager/pkg/models"
)

// Options configure the redis connection of the summary cache.
type Options struct {
	Address   string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// SummaryCache stores AnalyticsSummary payloads in redis.
//
// Entries are keyed by a snapshot version and the as-of date. The version is a
// redis counter bumped by Invalidate on every record write, so a payload computed
// from an older snapshot is never returned.
type SummaryCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// New connects to redis and verifies the connection.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*SummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	c := NewWithClient(client, opts.TTL, opts.KeyPrefix, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Address, err)
	}
	logger.Info("Redis summary cache initialized",
		zap.String("address", opts.Address),
		zap.Duration("ttl", c.ttl),
	)
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, ttl time.Duration, prefix string, logger *zap.Logger) *SummaryCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryCache{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *SummaryCache) versionKey() string {
	return c.prefix + "summary:version"
}

func (c *SummaryCache) summaryKey(version int64, asOf time.Time) string {
	return fmt.Sprintf("%ssummary:v%d:%s", c.prefix, version, asOf.Format("2006-01-02"))
}

// Version returns the current snapshot version, 0 before the first write.
func (c *SummaryCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return v, nil
}

// Get looks up the summary for asOf at the current version. The version is
// returned on a miss too, so the caller can Put under the version it observed
// before loading the snapshot.
func (c *SummaryCache) Get(ctx context.Context, asOf time.Time) (models.AnalyticsSummary, int64, bool, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return models.AnalyticsSummary{}, 0, false, err
	}
	data, err := c.client.Get(ctx, c.summaryKey(version, asOf)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.AnalyticsSummary{}, version, false, nil
	}
	if err != nil {
		return models.AnalyticsSummary{}, version, false, fmt.Errorf("cache get: %w", err)
	}

	var s models.AnalyticsSummary
	if err := json.Unmarshal(data, &s); err != nil {
		c.logger.Warn("Dropping undecodable cached summary", zap.Error(err))
		_ = c.client.Del(ctx, c.summaryKey(version, asOf)).Err()
		return models.AnalyticsSummary{}, version, false, nil
	}
	return s, version, true, nil
}

// Put stores s under the given version.
func (c *SummaryCache) Put(ctx context.Context, version int64, asOf time.Time, s models.AnalyticsSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, c.summaryKey(version, asOf), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate bumps the snapshot version. Entries of older versions expire on their TTL.
func (c *SummaryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.versionKey()).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (c *SummaryCache) Close() error {
	return c.client.Close()
}
