// Package scheduler runs background maintenance on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job represents a scheduled job
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a new scheduler. Each run gets its own context bounded by
// timeout; a non-positive timeout means one minute.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.With(zap.String("component", "scheduler")),
		timeout: timeout,
	}
}

// Validate reports whether spec is a schedule AddJob would accept.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// AddJob registers a job with a cron schedule such as "@every 30m" or
// "0 6 * * MON-FRI".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(job); err != nil {
			s.logger.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", job.Name(), err)
	}

	s.logger.Info("job registered",
		zap.String("schedule", schedule),
		zap.String("job", job.Name()),
	)
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Debug("running job", zap.String("job", job.Name()))
	if err := job.Run(ctx); err != nil {
		return err
	}
	s.logger.Debug("job completed",
		zap.String("job", job.Name()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
