// Package schedule runs passes on a cron schedule for watch mode.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled pass.
type Job func(ctx context.Context) error

// Scheduler fires jobs on cron specs. A job still running when its next
// tick arrives is skipped rather than stacked.
type Scheduler struct {
	cron    *cron.Cron
	logger  *log.Logger
	timeout time.Duration

	mu  sync.RWMutex
	ctx context.Context
}

// New creates a scheduler whose jobs get at most timeout each (0 = unbounded).
func New(logger *log.Logger, timeout time.Duration) *Scheduler {
	logger = logger.WithPrefix("schedule")
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
	}
}

// Add registers job under name. spec uses the standard five-field syntax
// or descriptors such as "@every 15m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := s.jobContext()
		defer cancel()
		start := time.Now()
		s.logger.Info("job started", "job", name)
		if err := job(ctx); err != nil {
			s.logger.Error("job failed", "job", name, "err", err, "took", time.Since(start).Round(time.Millisecond))
			return
		}
		s.logger.Info("job finished", "job", name, "took", time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.logger.Info("job added", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	s.mu.RLock()
	parent := s.ctx
	s.mu.RUnlock()
	if s.timeout > 0 {
		return context.WithTimeout(parent, s.timeout)
	}
	return context.WithCancel(parent)
}

// Next reports when the earliest job fires next.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("watching", "next", s.Next().Format(time.RFC3339))
	<-ctx.Done()
	s.logger.Info("stopping")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts the process logger to cron's logging interface.
type cronLogger struct{ l *log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}
