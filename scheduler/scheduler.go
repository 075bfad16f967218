package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"
	notifycommand "github.com/goliatone/go-order-notify/command"
	"github.com/goliatone/go-order-notify/core"
	"github.com/robfig/cron/v3"
)

// Jobs are the commands the scheduler triggers.
type Jobs struct {
	RunCycle     gocmd.Commander[notifycommand.RunCycleMessage]
	DrainPending gocmd.Commander[notifycommand.DrainPendingMessage]
	Cleanup      gocmd.Commander[notifycommand.CleanupMessage]
}

type Option func(*Scheduler)

func WithLogger(logger glog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocation sets the zone cleanup specs are evaluated in.
func WithLocation(location *time.Location) Option {
	return func(s *Scheduler) {
		if location != nil {
			s.location = location
		}
	}
}

// Scheduler runs the periodic cycle, the out-of-band queue drain and the
// daily cleanup. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cfg      core.ScheduleConfig
	jobs     Jobs
	logger   glog.Logger
	location *time.Location
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
	startup *time.Timer
	entries map[string]cron.EntryID
}

func New(cfg core.ScheduleConfig, jobs Jobs, opts ...Option) (*Scheduler, error) {
	if jobs.RunCycle == nil || jobs.DrainPending == nil || jobs.Cleanup == nil {
		return nil, fmt.Errorf("scheduler: run cycle, drain and cleanup jobs are required")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("scheduler: check interval must be positive")
	}
	s := &Scheduler{
		cfg:      cfg,
		jobs:     jobs,
		logger:   glog.Nop(),
		location: time.UTC,
		entries:  map[string]cron.EntryID{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	cronLogger := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if err := s.add("run_cycle", every(cfg.CheckInterval), s.runCycle); err != nil {
		return nil, err
	}
	if cfg.DrainInterval > 0 {
		if err := s.add("drain_pending", every(cfg.DrainInterval), s.drainPending); err != nil {
			return nil, err
		}
	}
	if spec := strings.TrimSpace(cfg.CleanupSpec); spec != "" {
		if err := s.add("cleanup", spec, s.cleanup); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins the cron loop and queues the first cycle after the startup
// delay.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.startup = time.AfterFunc(s.cfg.StartupDelay, func() {
		if ctx.Err() != nil {
			return
		}
		s.runCycle()
	})
	s.logger.Info("scheduler started",
		"check_interval", s.cfg.CheckInterval.String(),
		"drain_interval", s.cfg.DrainInterval.String(),
		"cleanup_spec", s.cfg.CleanupSpec,
	)
}

// Stop prevents new runs and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: wait for running jobs: %w", ctx.Err())
	}
}

// Next reports when each job fires next. Jobs are keyed by name.
func (s *Scheduler) Next() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

func (s *Scheduler) add(name string, spec string, fn func()) error {
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("scheduler: invalid %s schedule %q: %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) runCycle() {
	s.execute("run_cycle", func(ctx context.Context) error {
		return s.jobs.RunCycle.Execute(ctx, notifycommand.RunCycleMessage{Source: notifycommand.SourceScheduler})
	})
}

func (s *Scheduler) drainPending() {
	s.execute("drain_pending", func(ctx context.Context) error {
		return s.jobs.DrainPending.Execute(ctx, notifycommand.DrainPendingMessage{Source: notifycommand.SourceScheduler})
	})
}

func (s *Scheduler) cleanup() {
	s.execute("cleanup", func(ctx context.Context) error {
		return s.jobs.Cleanup.Execute(ctx, notifycommand.CleanupMessage{Source: notifycommand.SourceScheduler})
	})
}

// execute runs a job on a fresh context. The reconciler already logged and
// recorded the failure, so the scheduler only notes it.
func (s *Scheduler) execute(job string, fn func(ctx context.Context) error) {
	err := fn(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, core.ErrShuttingDown):
		s.logger.Debug("scheduled job skipped during shutdown", "job", job)
	default:
		s.logger.Warn("scheduled job failed", "job", job, "error", err.Error())
	}
}

func every(interval time.Duration) string {
	return "@every " + interval.String()
}

// cronLogger adapts glog to the cron.Logger contract.
type cronLogger struct {
	logger glog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"error", fmt.Sprint(err)}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}

var _ cron.Logger = cronLogger{}
