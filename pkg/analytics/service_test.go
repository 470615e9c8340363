package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"client-manager/pkg/models"
)

type countingSource struct {
	records []models.ClientProject
	err     error
	calls   int
}

func (s *countingSource) ListAllClientProjects(context.Context) ([]models.ClientProject, error) {
	s.calls++
	return s.records, s.err
}

type entry struct {
	version int64
	day     string
}

type memoryCache struct {
	version int64
	entries map[entry]models.AnalyticsSummary
	failGet bool
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[entry]models.AnalyticsSummary{}}
}

func (c *memoryCache) Get(_ context.Context, asOf time.Time) (models.AnalyticsSummary, int64, bool, error) {
	if c.failGet {
		return models.AnalyticsSummary{}, 0, false, errors.New("redis down")
	}
	s, ok := c.entries[entry{c.version, asOf.Format("2006-01-02")}]
	return s, c.version, ok, nil
}

func (c *memoryCache) Put(_ context.Context, version int64, asOf time.Time, s models.AnalyticsSummary) error {
	c.puts++
	c.entries[entry{version, asOf.Format("2006-01-02")}] = s
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.version++
	return nil
}

func acme() []models.ClientProject {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.ClientProject{
		{ID: 1, ClientName: "Acme", Cost: decimal.NewFromInt(1000), InvoiceStatus: models.InvoicePaid,
			StartDate: start, Deadline: start.AddDate(1, 0, 0)},
		{ID: 2, ClientName: "Acme", Cost: decimal.NewFromInt(500), InvoiceStatus: models.InvoiceUnpaid,
			StartDate: start, Deadline: start.AddDate(1, 0, 0)},
	}
}

func fixedService(src *countingSource, cache SummaryCache) *Service {
	svc := NewService(src, cache, nil)
	svc.now = func() time.Time { return time.Date(2025, 11, 15, 17, 42, 0, 0, time.FixedZone("X", 3600)) }
	return svc
}

func TestSummary_NoCacheComputesEveryTime(t *testing.T) {
	src := &countingSource{records: acme()}
	svc := fixedService(src, nil)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalClients)
	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), s.AsOf)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestSummary_CacheHitSkipsStore(t *testing.T) {
	src := &countingSource{records: acme()}
	c := newMemoryCache()
	svc := fixedService(src, c)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	second, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
}

func TestSummary_InvalidateForcesRecompute(t *testing.T) {
	src := &countingSource{records: acme()}
	c := newMemoryCache()
	svc := fixedService(src, c)

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)

	src.records = append(src.records, models.ClientProject{ID: 3, ClientName: "Beta",
		Cost: decimal.NewFromInt(200), InvoiceStatus: models.InvoicePaid})
	svc.Invalidate(context.Background())

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 2, s.TotalClients)
}

func TestSummary_CacheFailureDegrades(t *testing.T) {
	src := &countingSource{records: acme()}
	c := newMemoryCache()
	c.failGet = true
	svc := NewService(src, c, zaptest.NewLogger(t))

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalProjects)
	assert.Equal(t, 0, c.puts, "nothing is stored without a known version")
}

func TestSummary_SourceErrorIsWrapped(t *testing.T) {
	boom := errors.New("db gone")
	svc := fixedService(&countingSource{err: boom}, nil)
	_, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRefresh_StoresUnderNewVersion(t *testing.T) {
	src := &countingSource{records: acme()}
	c := newMemoryCache()
	svc := fixedService(src, c)

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.version)
	assert.Equal(t, 1, c.puts)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "summary after refresh is served from cache")
}
