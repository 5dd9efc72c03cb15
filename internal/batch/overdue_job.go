package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lender-ledger/internal/domain/loan"
	"lender-ledger/internal/infrastructure/monitoring"

	"github.com/robfig/cron/v3"
)

const (
	DefaultOverdueSweepSchedule = "0 * * * *"
	defaultOverdueSweepTimeout  = 5 * time.Minute
)

type Sweeper interface {
	SweepOverdue(ctx context.Context) (loan.SweepResult, error)
}

// OverdueSweepJob moves every tenant's past-due pending loans to overdue and
// queues their reminders.
type OverdueSweepJob struct {
	sweeper Sweeper
	timeout time.Duration
	logger  *slog.Logger
}

func NewOverdueSweepJob(sweeper Sweeper, timeout time.Duration, logger *slog.Logger) *OverdueSweepJob {
	if sweeper == nil || logger == nil {
		panic("OverdueSweepJob dependencies cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultOverdueSweepTimeout
	}
	return &OverdueSweepJob{
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger.With("job", "OverdueSweep"),
	}
}

func (j *OverdueSweepJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue sweep job.")

	result, err := j.sweeper.SweepOverdue(ctx)
	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("tenants", result.Tenants),
		slog.Int("loans_transitioned", result.Transitioned),
	)
	if err != nil {
		summaryLog.ErrorContext(ctx, "Overdue sweep job finished with errors.", slog.Any("error", err))
		monitoring.RecordSweepRun("error")
		return fmt.Errorf("overdue sweep failed: %w", err)
	}

	summaryLog.InfoContext(ctx, "Overdue sweep job finished successfully.")
	monitoring.RecordSweepRun("success")
	return nil
}

// Schedule registers the job on c under spec, falling back to the hourly
// default when spec is empty. A tick that fires while the previous sweep is
// still running is skipped.
func (j *OverdueSweepJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultOverdueSweepSchedule
		j.logger.Warn("Overdue sweep schedule not configured, using default", "schedule", spec)
	}
	chain := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: j.logger}))
	id, err := c.AddJob(spec, chain.Then(cron.FuncJob(func() {
		_ = j.Run(context.Background())
	})))
	if err != nil {
		return 0, fmt.Errorf("failed to schedule overdue sweep %q: %w", spec, err)
	}
	j.logger.Info("Scheduled overdue sweep job", "schedule", spec, "job_id", id)
	return id, nil
}

// cronLogger adapts slog to the cron.Logger used by job wrappers.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Warn("Previous overdue sweep still running, skipping this run.")
		monitoring.RecordSweepRun("skipped")
		return
	}
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
