package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kazz187/taskgraph/pkg/cerr"
)

// ProjectLocks serializes writers per project. Readers never take these locks.
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[string]*semaphore.Weighted)}
}

func (l *ProjectLocks) get(projectID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[projectID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[projectID] = sem
	}
	return sem
}

// Acquire blocks until the project lock is held, ctx is done or timeout
// elapses. A zero timeout waits for ctx only. The returned func releases the lock.
func (l *ProjectLocks) Acquire(ctx context.Context, projectID string, timeout time.Duration) (func(), error) {
	sem := l.get(projectID)
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := sem.Acquire(waitCtx, 1); err != nil {
		msg := "project is busy, retry later"
		if errors.Is(ctx.Err(), context.Canceled) {
			msg = "request canceled while waiting for project lock"
		}
		e := cerr.UnavailableError(msg, fmt.Errorf("acquire lock for project %s: %w", projectID, err))
		e.Fields = map[string]string{"project_id": projectID}
		return nil, e
	}
	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}, nil
}
