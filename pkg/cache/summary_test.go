package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"client-manager/pkg/models"
)

func unreachable(t *testing.T) *SummaryCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, time.Minute, "cm-test:", zaptest.NewLogger(t))
}

func TestSummaryKey(t *testing.T) {
	c := NewWithClient(nil, 0, "client-manager:", nil)
	asOf := time.Date(2025, 11, 15, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, "client-manager:summary:version", c.versionKey())
	assert.Equal(t, "client-manager:summary:v3:2025-11-15", c.summaryKey(3, asOf))
	assert.NotEqual(t, c.summaryKey(3, asOf), c.summaryKey(4, asOf), "a write must move readers to a new key")
	assert.Equal(t, c.summaryKey(3, asOf), c.summaryKey(3, asOf.Add(-time.Hour)), "same day shares an entry")
	assert.Equal(t, 15*time.Minute, c.ttl)
}

func TestSummaryCache_ErrorsSurface(t *testing.T) {
	c := unreachable(t)
	ctx := context.Background()
	asOf := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)

	_, _, hit, err := c.Get(ctx, asOf)
	require.Error(t, err)
	assert.False(t, hit)

	assert.Error(t, c.Put(ctx, 0, asOf, models.AnalyticsSummary{}))
	assert.Error(t, c.Invalidate(ctx))
}

func TestNew_FailsWithoutRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, Options{Address: "127.0.0.1:1"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func newMiniCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, 10*time.Minute, "cm-test:", zaptest.NewLogger(t)), mr
}

func TestSummaryCache_MissReportsVersion(t *testing.T) {
	c, _ := newMiniCache(t)
	ctx := context.Background()
	asOf := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)

	_, version, hit, err := c.Get(ctx, asOf)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(0), version)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx))
	_, version, hit, err = c.Get(ctx, asOf)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(2), version)
}

func TestSummaryCache_PutGetAndInvalidate(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()
	asOf := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	summary := models.AnalyticsSummary{
		TotalClients: 2,
		TotalRevenue: decimal.RequireFromString("1500.25"),
		PaidProjects: 1,
	}

	_, version, _, err := c.Get(ctx, asOf)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, version, asOf, summary))
	assert.Equal(t, 10*time.Minute, mr.TTL(c.summaryKey(version, asOf)))

	got, gotVersion, hit, err := c.Get(ctx, asOf)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, version, gotVersion)
	assert.Equal(t, 2, got.TotalClients)
	assert.Equal(t, "1500.25", got.TotalRevenue.String())
	assert.Equal(t, 1, got.PaidProjects)

	// A later day never reads today's entry.
	_, _, hit, err = c.Get(ctx, asOf.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Invalidate(ctx))
	_, newVersion, hit, err := c.Get(ctx, asOf)
	require.NoError(t, err)
	assert.False(t, hit, "a write must hide the previous payload")
	assert.Equal(t, version+1, newVersion)

	// A computation that observed the old version stores where nobody reads.
	require.NoError(t, c.Put(ctx, version, asOf, summary))
	_, _, hit, err = c.Get(ctx, asOf)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSummaryCache_CorruptEntryIsDropped(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()
	asOf := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	key := c.summaryKey(0, asOf)
	require.NoError(t, mr.Set(key, "{not json"))

	_, version, hit, err := c.Get(ctx, asOf)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(0), version)
	assert.False(t, mr.Exists(key))
}

func TestNew_ConnectsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), Options{Address: mr.Addr(), KeyPrefix: "cm:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Invalidate(context.Background()))
	v, err := mr.Get("cm:summary:version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
