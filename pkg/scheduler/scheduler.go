package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/quotagate/pkg/logger"
)

// Job is the unit of scheduled work. now is the scheduler clock at invocation.
type Job func(ctx context.Context, now time.Time) error

type entry struct {
	name     string
	schedule Schedule
	job      Job
	next     time.Time
	running  sync.Mutex
}

// Scheduler runs registered jobs when their schedule is due.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string

	checkInterval time.Duration
	clock         func() time.Time
	logger        *slog.Logger
	runOnStart    bool

	stop chan struct{}
	done chan struct{}
}

// New creates a Scheduler with a 30s check interval.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		entries:       make(map[string]*entry),
		checkInterval: 30 * time.Second,
		clock:         time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("scheduler"))
	return s
}

// Add registers a job under a unique name.
func (s *Scheduler) Add(name string, schedule Schedule, job Job) error {
	if name == "" || schedule == nil || job == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return ErrJobAlreadyRegistered
	}
	e := &entry{name: name, schedule: schedule, job: job}
	if s.stop != nil {
		e.next = schedule.Next(s.clock())
	}
	s.entries[name] = e
	s.order = append(s.order, name)

	s.logger.Info("registered job",
		slog.String("job", name),
		slog.String("schedule", schedule.String()))
	return nil
}

// Jobs returns registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Start runs the scheduling loop. It blocks until Stop is called (returns nil)
// or ctx is done (returns ctx.Err()).
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return ErrNoJobs
	}
	if s.stop != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done

	now := s.clock()
	for _, e := range s.entries {
		if s.runOnStart {
			e.next = now
		} else {
			e.next = e.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.stop, s.done = nil, nil
		s.mu.Unlock()
		close(done)
	}()

	s.logger.InfoContext(ctx, "scheduler started", slog.Duration("check_interval", s.checkInterval))

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.runDue(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler shutting down")
			return ctx.Err()
		case <-stop:
			s.logger.InfoContext(ctx, "scheduler stopped")
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop ends a running Start loop and waits for the current job to finish.
// It is a no-op when the scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	if stop != nil {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}

	if !e.running.TryLock() {
		return ErrJobRunning
	}
	defer e.running.Unlock()

	return s.execute(ctx, e, s.clock())
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.clock()

	s.mu.Lock()
	due := make([]*entry, 0, len(s.order))
	for _, name := range s.order {
		if e := s.entries[name]; !e.next.After(now) {
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		if ctx.Err() != nil {
			return
		}
		if !e.running.TryLock() {
			s.logger.WarnContext(ctx, "job still running, skipping tick", slog.String("job", e.name))
			continue
		}
		_ = s.execute(ctx, e, now)

		s.mu.Lock()
		e.next = e.schedule.Next(now)
		s.mu.Unlock()
		e.running.Unlock()
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry, now time.Time) error {
	started := time.Now()
	err := e.job(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "job failed",
			slog.String("job", e.name),
			logger.Error(err))
		return err
	}
	s.logger.DebugContext(ctx, "job finished",
		slog.String("job", e.name),
		slog.Duration("took", time.Since(started)))
	return nil
}
