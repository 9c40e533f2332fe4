package badgerstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

type taskRepository struct {
	txn *badger.Txn
}

var _ task.Repository = (*taskRepository)(nil)

func (r *taskRepository) Create(ctx context.Context, t *task.Task) error {
	ok, err := exists(r.txn, taskKey(t.ID))
	if err != nil {
		return readError("task", t.ID, err)
	}
	if ok {
		return cerr.NewKindError(cerr.KindConstraintViolation, "task already exists", map[string]string{"task_id": t.ID})
	}
	if ok, err := exists(r.txn, projectKey(t.ProjectID)); err != nil {
		return readError("project", t.ProjectID, err)
	} else if !ok {
		return cerr.NotFoundError("project", t.ProjectID)
	}
	if t.HasParent() {
		if err := r.checkParent(ctx, t); err != nil {
			return err
		}
	}

	if err := setYAML(r.txn, taskKey(t.ID), t); err != nil {
		return writeError("task", err)
	}
	if err := setIndex(r.txn, projectTaskKey(t.ProjectID, t.ID)); err != nil {
		return writeError("task index", err)
	}
	if t.HasParent() {
		if err := setIndex(r.txn, childKey(t.ParentID, t.ID)); err != nil {
			return writeError("subtask index", err)
		}
	}
	return nil
}

func (r *taskRepository) checkParent(ctx context.Context, t *task.Task) error {
	if t.ParentID == t.ID {
		return cerr.NewKindError(cerr.KindConstraintViolation, "a task cannot be its own parent", map[string]string{"task_id": t.ID})
	}
	parent, err := r.Get(ctx, t.ParentID)
	if err != nil {
		return err
	}
	if parent.ProjectID != t.ProjectID {
		return cerr.NewKindError(cerr.KindConstraintViolation, "parent task belongs to another project", map[string]string{
			"task_id":   t.ID,
			"parent_id": t.ParentID,
		})
	}
	return nil
}

func (r *taskRepository) Get(_ context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := getYAML(r.txn, taskKey(id), &t); err != nil {
		return nil, readError("task", id, err)
	}
	return &t, nil
}

func (r *taskRepository) GetMany(ctx context.Context, ids []string) ([]*task.Task, error) {
	out := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *taskRepository) Update(ctx context.Context, t *task.Task) error {
	old, err := r.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if old.ProjectID != t.ProjectID {
		return cerr.NewKindError(cerr.KindConstraintViolation, "a task cannot move between projects", map[string]string{"task_id": t.ID})
	}
	if old.ParentID != t.ParentID {
		if t.HasParent() {
			if err := r.checkParent(ctx, t); err != nil {
				return err
			}
			if err := setIndex(r.txn, childKey(t.ParentID, t.ID)); err != nil {
				return writeError("subtask index", err)
			}
		}
		if old.HasParent() {
			if err := r.txn.Delete(childKey(old.ParentID, t.ID)); err != nil {
				return writeError("subtask index", err)
			}
		}
	}
	if err := setYAML(r.txn, taskKey(t.ID), t); err != nil {
		return writeError("task", err)
	}
	return nil
}

// Delete removes the task record and its index entries. Subtasks, edges and
// events are left to the caller.
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	t, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	keys := [][]byte{taskKey(id), projectTaskKey(t.ProjectID, id)}
	if t.HasParent() {
		keys = append(keys, childKey(t.ParentID, id))
	}
	if err := deleteKeys(r.txn, keys); err != nil {
		return writeError("task", err)
	}
	return nil
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID string) ([]*task.Task, error) {
	ids, err := scanSuffixes(r.txn, projectTasksPrefix(projectID))
	if err != nil {
		return nil, readError("tasks", projectID, err)
	}
	out := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if errors.Is(err, errNotFound) || cerr.IsKind(err, cerr.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
