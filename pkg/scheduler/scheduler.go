package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"client-manager/pkg/metrics"
	"client-manager/pkg/models"
	"client-manager/pkg/reminders"
)

// Job names, also used as metric labels.
const (
	JobRecurring = "recurring"
	JobReminders = "reminders"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 5 * time.Minute

// SummaryRefresher recomputes and caches the analytics summary.
type SummaryRefresher interface {
	Refresh(ctx context.Context) (models.AnalyticsSummary, error)
}

// ReminderSender records reminders for every eligible project.
type ReminderSender interface {
	Send(ctx context.Context, clientIDs []int64) (reminders.SendReport, error)
}

// Jobs are the background tasks, run either by the Scheduler or by an
// external cron calling the internal HTTP routes.
type Jobs struct {
	analytics SummaryRefresher
	reminders ReminderSender
	logger    *zap.Logger
}

func NewJobs(analytics SummaryRefresher, rem ReminderSender, logger *zap.Logger) *Jobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jobs{analytics: analytics, reminders: rem, logger: logger}
}

// RunRecurring drops the cached summary and recomputes it for today.
func (j *Jobs) RunRecurring(ctx context.Context) error {
	start := time.Now()
	summary, err := j.analytics.Refresh(ctx)
	metrics.RecordJobRun(JobRecurring, err == nil)
	if err != nil {
		return fmt.Errorf("refresh analytics summary: %w", err)
	}
	j.logger.Info("Recurring job completed",
		zap.Int("total_clients", summary.TotalClients),
		zap.Int("expiring_soon", len(summary.ExpiringSoon)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// RunReminders records a reminder for every eligible project.
func (j *Jobs) RunReminders(ctx context.Context) (reminders.SendReport, error) {
	report, err := j.reminders.Send(ctx, nil)
	metrics.RecordJobRun(JobReminders, err == nil)
	if err != nil {
		return reminders.SendReport{}, fmt.Errorf("send reminders: %w", err)
	}
	return report, nil
}

// Config holds the cron specs. An empty spec disables that job.
type Config struct {
	RecurringSpec string
	RemindersSpec string
}

// Scheduler runs Jobs on cron schedules, in UTC.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates the specs and registers the jobs. Nothing runs until Start.
func New(jobs *Jobs, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:   jobs,
		logger: logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if cfg.RecurringSpec != "" {
		if _, err := s.cron.AddFunc(cfg.RecurringSpec, s.runRecurring); err != nil {
			return nil, fmt.Errorf("invalid recurring spec %q: %w", cfg.RecurringSpec, err)
		}
	}
	if cfg.RemindersSpec != "" {
		if _, err := s.cron.AddFunc(cfg.RemindersSpec, s.runReminders); err != nil {
			return nil, fmt.Errorf("invalid reminders spec %q: %w", cfg.RemindersSpec, err)
		}
	}
	return s, nil
}

// Start begins running the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Scheduled job", zap.Int("entry", int(e.ID)), zap.Time("next_run", e.Next))
	}
}

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runRecurring() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	if err := s.jobs.RunRecurring(ctx); err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", JobRecurring), zap.Error(err))
	}
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	report, err := s.jobs.RunReminders(ctx)
	if err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", JobReminders), zap.Error(err))
		return
	}
	s.logger.Info("Scheduled reminders recorded",
		zap.Int("sent", report.TotalSent),
		zap.Int("failed", len(report.Failed)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
