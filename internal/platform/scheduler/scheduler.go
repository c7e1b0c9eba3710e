package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wcfantasy/backend/internal/platform/logging"
)

// Job is one unit of scheduled work. It must respect ctx cancellation and
// never panic past its own boundary.
type Job func(ctx context.Context)

// Scheduler runs registered jobs on fixed intervals. Overlapping runs of
// the same job are skipped, not queued: a slow tick delays nothing and a
// new tick never starts while the previous one is still going.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logging.Logger
	baseCtx context.Context
	cancel  context.CancelFunc
}

func New(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}

	cronLogger := &logAdapter{logger: logger}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithChain(
				cron.Recover(cronLogger),
				cron.SkipIfStillRunning(cronLogger),
			),
		),
		logger:  logger,
		baseCtx: baseCtx,
		cancel:  cancel,
	}
}

// AddEvery registers a job to run once per interval.
func (s *Scheduler) AddEvery(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		ctx := s.baseCtx
		start := time.Now()
		job(ctx)
		s.logger.DebugContext(ctx, "scheduled job finished",
			"job", name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.logger.Info("scheduled job registered", "job", name, "interval", interval.String())
	return nil
}

// Start launches the schedule loop. Jobs begin firing after their first
// interval elapses.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling, cancels in-flight job contexts and waits for
// running jobs to return.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.logger.Info("scheduler stopped")
}

// logAdapter bridges cron's logger to ours. Cron emits key-value pairs the
// same way the logging wrapper consumes them.
type logAdapter struct {
	logger *logging.Logger
}

func (a *logAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *logAdapter) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"error", err.Error()}, keysAndValues...)
	a.logger.Error(msg, args...)
}
