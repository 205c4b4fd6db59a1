// Package scheduler runs the periodic maintenance jobs: closing matches whose
// betting window has passed and archiving old ledger rows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner. Jobs are registered with Add before Run is
// called. A job that is still running when its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
}

// New creates a Scheduler using standard five-field cron specs and the
// @every / @daily descriptors.
func New(logger *slog.Logger) *Scheduler {
	l := logger.With(slog.String("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{l}), cron.SkipIfStillRunning(cronLogger{l})),
		),
		logger: l,
		ctx:    context.Background(),
	}
}

// Add registers fn under name on spec.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, fn)); err != nil {
		return fmt.Errorf("scheduler: add %s (%q): %w", name, spec, err)
	}
	s.logger.Info("scheduler: job registered", slog.String("job", name), slog.String("spec", spec))
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler: started", slog.Int("jobs", s.Jobs()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return nil
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		start := time.Now()
		if err := fn(s.ctx); err != nil {
			s.logger.ErrorContext(s.ctx, "scheduler: job failed",
				slog.String("job", name),
				slog.Duration("took", time.Since(start)),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.DebugContext(s.ctx, "scheduler: job done",
			slog.String("job", name),
			slog.Duration("took", time.Since(start)),
		)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("scheduler: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("scheduler: "+msg, append(keysAndValues, "error", err)...)
}
