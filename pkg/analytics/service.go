package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"client-manager/pkg/calculator"
	"client-manager/pkg/metrics"
	"client-manager/pkg/models"
)

// SummaryCache is the optional cache layer in front of the engine.
type SummaryCache interface {
	Get(ctx context.Context, asOf time.Time) (models.AnalyticsSummary, int64, bool, error)
	Put(ctx context.Context, version int64, asOf time.Time, s models.AnalyticsSummary) error
	Invalidate(ctx context.Context) error
}

// Service loads a snapshot from the record store and runs the engine over it.
type Service struct {
	source calculator.ClientSource
	cache  SummaryCache
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds a Service. cache may be nil, in which case every call computes.
func NewService(source calculator.ClientSource, cache SummaryCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// AsOf returns today's date in UTC. Summaries are computed per calendar day.
func (s *Service) AsOf() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// Summary returns the analytics summary for today, from cache when possible.
// Cache failures are logged and never fail the request.
func (s *Service) Summary(ctx context.Context) (models.AnalyticsSummary, error) {
	asOf := s.AsOf()

	var version int64
	cacheable := false
	if s.cache != nil {
		summary, v, hit, err := s.cache.Get(ctx, asOf)
		switch {
		case err != nil:
			metrics.RecordCacheLookup("error")
			s.logger.Warn("Summary cache lookup failed, computing directly", zap.Error(err))
		case hit:
			metrics.RecordCacheLookup("hit")
			return summary, nil
		default:
			metrics.RecordCacheLookup("miss")
			version, cacheable = v, true
		}
	}

	summary, err := s.compute(ctx, asOf)
	if err != nil {
		return models.AnalyticsSummary{}, err
	}
	if cacheable {
		if err := s.cache.Put(ctx, version, asOf, summary); err != nil {
			s.logger.Warn("Failed to store summary in cache", zap.Error(err))
		}
	}
	return summary, nil
}

// Refresh recomputes today's summary and stores it, ignoring any cached copy.
func (s *Service) Refresh(ctx context.Context) (models.AnalyticsSummary, error) {
	asOf := s.AsOf()
	var version int64
	if s.cache != nil {
		// A fresh version makes sure no reader keeps a payload older than this run.
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate summary cache", zap.Error(err))
		}
		_, v, _, err := s.cache.Get(ctx, asOf)
		if err != nil {
			s.logger.Warn("Summary cache unavailable during refresh", zap.Error(err))
		}
		version = v
	}

	summary, err := s.compute(ctx, asOf)
	if err != nil {
		return models.AnalyticsSummary{}, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, version, asOf, summary); err != nil {
			s.logger.Warn("Failed to store summary in cache", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops cached summaries after a record write.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate summary cache", zap.Error(err))
	}
}

func (s *Service) compute(ctx context.Context, asOf time.Time) (models.AnalyticsSummary, error) {
	records, err := s.source.ListAllClientProjects(ctx)
	if err != nil {
		return models.AnalyticsSummary{}, fmt.Errorf("load client snapshot: %w", err)
	}
	start := time.Now()
	summary := calculator.Summarize(records, asOf)
	metrics.ObserveSummaryComputation(time.Since(start))

	s.logger.Debug("Analytics summary computed",
		zap.Int("projects", summary.TotalProjects),
		zap.Int("clients", summary.TotalClients),
		zap.Duration("duration", time.Since(start)),
	)
	return summary, nil
}
