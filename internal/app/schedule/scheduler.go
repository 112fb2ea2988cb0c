package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one periodic task. Each run gets its own timeout-bound context.
type Job struct {
	Name     string
	Spec     string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
	entryID  cron.EntryID
	runsDone int
}

// Scheduler runs jobs on cron specs. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu     sync.Mutex
	jobs   map[string]*Job
	cancel context.CancelFunc
	base   context.Context
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
		jobs:   make(map[string]*Job),
		base:   context.Background(),
	}
}

// Add registers a job. It may be called before or after Start.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("schedule: job %q has no run func", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("schedule: job %q already registered", job.Name)
	}
	j := job
	id, err := s.cron.AddFunc(j.Spec, func() { s.run(&j) })
	if err != nil {
		return fmt.Errorf("schedule: job %q spec %q: %w", j.Name, j.Spec, err)
	}
	j.entryID = id
	s.jobs[j.Name] = &j
	return nil
}

func (s *Scheduler) run(j *Job) {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := j.Run(ctx)
	s.mu.Lock()
	j.runsDone++
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("scheduled job failed", "job", j.Name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("scheduled job finished", "job", j.Name, "duration", time.Since(start))
}

// Runs reports how many times the named job completed.
func (s *Scheduler) Runs(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[name]; ok {
		return j.runsDone
	}
	return 0
}

// Next reports the next activation of the named job once the scheduler runs.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(j.entryID).Next
}

// Start runs the scheduler until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
