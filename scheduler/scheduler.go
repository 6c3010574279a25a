package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownTask is returned by RunNow for an unregistered name.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// ErrAlreadyRunning is returned by RunNow while the task is mid-run.
var ErrAlreadyRunning = errors.New("scheduler: task already running")

// TaskFn is the function signature for scheduled tasks.
type TaskFn func(ctx context.Context) error

// TaskStatus is a snapshot of one registered task.
type TaskStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  *time.Time    `json:"last_run,omitempty"`
	LastErr  string        `json:"last_error,omitempty"`
	Runs     int           `json:"runs"`
	Running  bool          `json:"running"`
}

// Scheduler runs named tasks on fixed intervals. Runs of the same task never
// overlap; a tick that arrives mid-run is skipped.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

type task struct {
	name     string
	interval time.Duration
	fn       TaskFn
	stopCh   chan struct{}

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	lastErr string
	runs    int
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*task),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if interval <= 0 {
		s.logger.Warn("scheduler task disabled: non-positive interval", zap.String("name", name))
		return
	}
	if old, ok := s.tasks[name]; ok {
		close(old.stopCh)
		delete(s.tasks, name)
	}

	t := &task{name: name, interval: interval, fn: fn, stopCh: make(chan struct{})}
	s.tasks[name] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.run(t); errors.Is(err, ErrAlreadyRunning) {
					s.logger.Debug("scheduler tick skipped", zap.String("task", name))
				}
			case <-t.stopCh:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// RunNow runs a registered task synchronously and returns its error.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return s.run(t)
}

func (s *Scheduler) run(t *task) (err error) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	t.running = true
	t.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", t.name),
				zap.Any("recover", r))
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
		t.mu.Lock()
		t.running = false
		t.runs++
		t.lastRun = &start
		t.lastErr = ""
		if err != nil {
			t.lastErr = err.Error()
		}
		t.mu.Unlock()
	}()

	err = t.fn(s.ctx)
	if err != nil {
		s.logger.Warn("scheduler task failed",
			zap.String("task", t.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	} else {
		s.logger.Debug("scheduler task finished",
			zap.String("task", t.name),
			zap.Duration("elapsed", time.Since(start)))
	}
	return err
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		close(t.stopCh)
		delete(s.tasks, name)
	}
}

// Stop cancels in-flight runs and waits for every ticker goroutine to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Status returns a snapshot of every registered task sorted by name.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	out := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		t.mu.Lock()
		out = append(out, TaskStatus{
			Name:     t.name,
			Interval: t.interval,
			LastRun:  t.lastRun,
			LastErr:  t.lastErr,
			Runs:     t.runs,
			Running:  t.running,
		})
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListTickers returns the names of all registered tasks.
func (s *Scheduler) ListTickers() []string {
	st := s.Status()
	names := make([]string, len(st))
	for i, t := range st {
		names[i] = t.Name
	}
	return names
}
