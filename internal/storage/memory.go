// Package storage contains the in-memory task registry. Go keeps each package
// in its own folder; files in the folder share a namespace.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/MapPoster/internal/model"
)

var (
	// ErrNotFound is exported so callers elsewhere can compare errors using
	// errors.Is; Go encourages sentinel errors for simple cases.
	ErrNotFound = errors.New("task not found")
	// ErrTerminal is returned for any update to a completed or failed task.
	ErrTerminal = errors.New("task already finished")
	// ErrInvalidTransition is returned for updates the task's state does not
	// allow, such as completing a task that never started.
	ErrInvalidTransition = errors.New("invalid task transition")
)

// TaskStore keeps task state in memory using RWMutex. Readers (status polls)
// take the read lock and get snapshots, so they never see a status and a
// progress value from different updates.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	ttl   time.Duration
	now   func() time.Time
}

// NewTaskStore constructs a TaskStore. Finished tasks are evicted once they
// have been terminal for longer than ttl; ttl <= 0 keeps them forever.
func NewTaskStore(ttl time.Duration) *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*model.Task),
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new pending task with a random id.
func (s *TaskStore) Create() *model.Task {
	now := s.now()
	task := &model.Task{
		ID:        uuid.NewString(),
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	// defer schedules code to run when the function returns, guaranteeing the
	// mutex unlock even if the function exits early.
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return snapshot(task)
}

// Get returns a snapshot of the task.
func (s *TaskStore) Get(id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(task), nil
}

// Start moves a pending task to processing at the given progress.
func (s *TaskStore) Start(id string, progress int) error {
	return s.update(id, func(t *model.Task) error {
		if t.Status != model.StatusPending {
			return ErrInvalidTransition
		}
		t.Status = model.StatusProcessing
		t.Progress = clampProgress(progress)
		return nil
	})
}

// Advance raises the progress of a processing task. Lower values are ignored
// so progress never goes backwards.
func (s *TaskStore) Advance(id string, progress int) error {
	return s.update(id, func(t *model.Task) error {
		if t.Status != model.StatusProcessing {
			return ErrInvalidTransition
		}
		if p := clampProgress(progress); p > t.Progress {
			t.Progress = p
		}
		return nil
	})
}

// Complete attaches the result and marks the task completed at 100%.
func (s *TaskStore) Complete(id string, result model.PosterResult) error {
	return s.update(id, func(t *model.Task) error {
		if t.Status != model.StatusProcessing {
			return ErrInvalidTransition
		}
		t.Status = model.StatusCompleted
		t.Progress = 100
		t.Result = &result
		t.FinishedAt = t.UpdatedAt
		return nil
	})
}

// Fail marks the task failed with msg. Progress keeps the value it reached.
func (s *TaskStore) Fail(id, msg string) error {
	return s.update(id, func(t *model.Task) error {
		t.Status = model.StatusFailed
		t.Error = msg
		t.FinishedAt = t.UpdatedAt
		return nil
	})
}

func (s *TaskStore) update(id string, apply func(*model.Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Maps in Go return (value, bool) when looked up; bool indicates presence.
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if task.Status.Terminal() {
		return ErrTerminal
	}
	// Apply to a copy so a rejected update leaves no trace.
	next := *task
	next.UpdatedAt = s.now()
	if err := apply(&next); err != nil {
		return err
	}
	*task = next
	return nil
}

// Sweep evicts tasks that have been terminal for longer than the TTL and
// returns how many were removed.
func (s *TaskStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, task := range s.tasks {
		if task.Status.Terminal() && now.Sub(task.FinishedAt) > s.ttl {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (s *TaskStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now.UTC())
		}
	}
}

// Len returns the number of retained tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// snapshot returns a copy so callers cannot mutate internal state.
func snapshot(t *model.Task) *model.Task {
	cp := *t
	if t.Result != nil {
		r := *t.Result
		cp.Result = &r
	}
	return &cp
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
