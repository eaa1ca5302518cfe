// Package scheduler runs independent fixed-interval background tasks.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Task is one unit of periodic work.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler runs each task on its own ticker. Tasks never wait on each other;
// a slow run only delays that task's next tick.
type Scheduler struct {
	tasks  []Task
	logger *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler for tasks.
func New(logger *zap.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{tasks: tasks, logger: logger}
}

// Start launches one goroutine per task. The first run of each task happens
// after one interval. Tasks stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}

	s.logger.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
	return nil
}

// Stop cancels all tasks and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	log := s.logger.With(zap.String("task", task.Name))
	log.Debug("task scheduled", zap.Duration("interval", task.Interval))

	for {
		select {
		case <-ctx.Done():
			log.Debug("task stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, task, log)
		}
	}
}

// runOnce shields the loop from a panicking task.
func (s *Scheduler) runOnce(ctx context.Context, task Task, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	task.Run(ctx)
	log.Debug("task ran", zap.Duration("took", time.Since(start)))
}
