// Package schedule runs named periodic tasks with atomic
// cancel-then-create replacement.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Scheduler owns a set of named periodic tasks. Scheduling a name that
// is already active first cancels the existing task, so a start is
// idempotent: at most one task per name exists at any time.
//
// Each task carries a generation number. A tick whose task is no longer
// the current generation for its name performs no side effect, which
// closes the race between Cancel and an already-fired tick.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
	gens  map[string]uint64
}

type task struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Scheduler {
	return &Scheduler{
		tasks: make(map[string]*task),
		gens:  make(map[string]uint64),
	}
}

// Option configures a scheduled task.
type Option func(*taskOptions)

type taskOptions struct {
	immediate bool
}

// Immediate makes the task run once as soon as it is scheduled, before
// the first period elapses.
func Immediate() Option {
	return func(o *taskOptions) { o.immediate = true }
}

// Every schedules fn to run every period under the given name,
// replacing any existing task with that name. fn runs on the task's
// own goroutine; a slow fn does not stack invocations, late ticks are
// dropped.
func (s *Scheduler) Every(ctx context.Context, name string, period time.Duration, fn func(context.Context), opts ...Option) {
	var options taskOptions
	for _, opt := range opts {
		opt(&options)
	}

	s.mu.Lock()
	s.cancelLocked(name)
	s.gens[name]++
	gen := s.gens[name]

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{gen: gen, cancel: cancel, done: make(chan struct{})}
	s.tasks[name] = t
	s.mu.Unlock()

	go s.run(taskCtx, t, name, period, fn, options.immediate)
}

func (s *Scheduler) run(ctx context.Context, t *task, name string, period time.Duration, fn func(context.Context), immediate bool) {
	defer close(t.done)

	if immediate && s.current(name, t.gen) {
		fn(ctx)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil || !s.current(name, t.gen) {
				return
			}
			fn(ctx)
		}
	}
}

// current reports whether gen is still the live generation for name.
func (s *Scheduler) current(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[name] == gen
}

// Cancel stops the named task. It returns once the task's loop has
// exited, so no tick of that task fires after Cancel returns.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	t := s.tasks[name]
	s.cancelLocked(name)
	s.mu.Unlock()

	if t != nil {
		<-t.done
	}
}

// CancelAll stops every task, synchronously.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	stopped := make([]*task, 0, len(s.tasks))
	for name := range s.tasks {
		stopped = append(stopped, s.tasks[name])
		s.cancelLocked(name)
	}
	s.mu.Unlock()

	for _, t := range stopped {
		<-t.done
	}
}

// Active reports whether a task with the given name is scheduled.
func (s *Scheduler) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// cancelLocked invalidates the current generation for name and cancels
// the task context. Caller holds s.mu.
func (s *Scheduler) cancelLocked(name string) {
	if t, ok := s.tasks[name]; ok {
		s.gens[name]++
		t.cancel()
		delete(s.tasks, name)
	}
}
